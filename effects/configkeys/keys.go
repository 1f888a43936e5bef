package configkeys

const (
	delimiter = "."

	ConfigPrefix = "config"

	ConfigEffectPrefix = ConfigPrefix + delimiter + "effect"

	ConfigEffectLogPrefix = ConfigEffectPrefix + delimiter + "log"

	ConfigEffectLogHandlerPrefix     = ConfigEffectLogPrefix + delimiter + "handler"
	ConfigEffectLogHandlerBufferSize = ConfigEffectLogHandlerPrefix + delimiter + "buffer_size"

	ConfigEffectConcurrencyPrefix = ConfigEffectPrefix + delimiter + "concurrency"

	ConfigEffectConcurrencyHandlerPrefix     = ConfigEffectConcurrencyPrefix + delimiter + "handler"
	ConfigEffectConcurrencyHandlerBufferSize = ConfigEffectConcurrencyHandlerPrefix + delimiter + "buffer_size"

	ConfigEffectCancellationPrefix = ConfigEffectPrefix + delimiter + "cancellation"

	ConfigEffectCancellationRegistryPrefix    = ConfigEffectCancellationPrefix + delimiter + "registry"
	ConfigEffectCancellationRegistryNumShards = ConfigEffectCancellationRegistryPrefix + delimiter + "num_shards"

	ConfigEffectStorePrefix = ConfigEffectPrefix + delimiter + "store"

	ConfigEffectStoreDebounce = ConfigEffectStorePrefix + delimiter + "debounce"
)
