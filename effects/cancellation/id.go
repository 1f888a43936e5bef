package cancellation

import (
	"fmt"
	"reflect"
)

// ID groups in-flight effects for bulk cancellation.
//
// An ID carries the static type of the key it was built from, so keys that are
// equal as values but declared with different types never match:
//
//	type searchID struct{}
//	type autosaveID struct{}
//
//	IDOf(searchID{}) != IDOf(autosaveID{})
//
// The key's dynamic value must be comparable; registering an ID whose value is not
// panics like any other map key would.
type ID struct {
	kind  reflect.Type
	value any
}

// IDOf builds an ID from key, discriminated by K.
func IDOf[K comparable](key K) ID {
	return ID{kind: reflect.TypeFor[K](), value: key}
}

func (id ID) String() string {
	return fmt.Sprintf("%v(%v)", id.kind, id.value)
}

// PartitionKey selects the registry shard of the ID.
func (id ID) PartitionKey() string {
	return id.String()
}
