package helper_test

import (
	"errors"
	"testing"

	"github.com/on-the-ground/effect_ive_store/shared/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTypedValueOf(t *testing.T) {
	v, err := helper.GetTypedValueOf[int](func() (any, error) { return 16, nil })
	require.NoError(t, err)
	assert.Equal(t, 16, v)

	_, err = helper.GetTypedValueOf[int](func() (any, error) { return "16", nil })
	assert.ErrorContains(t, err, "unexpected type: string")

	errMissing := errors.New("missing")
	_, err = helper.GetTypedValueOf[int](func() (any, error) { return nil, errMissing })
	assert.ErrorIs(t, err, errMissing)
}

func TestMustGetTypedValue_Panics(t *testing.T) {
	assert.Panics(t, func() {
		helper.MustGetTypedValue[int](func() (any, error) { return 1.5, nil })
	})
}
