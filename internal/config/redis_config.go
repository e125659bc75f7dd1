package config

type Redis struct{}

var _ RedisConfig = Redis{}

// GetRedisAddr returns the Redis address for the shared token store. Empty
// means the file store is used instead.
func (Redis) GetRedisAddr() string {
	return GetEnv("CAMPAIGNS_REDIS_ADDR", "")
}

func (Redis) GetRedisPassword() string {
	return GetEnv("CAMPAIGNS_REDIS_PASSWORD", "")
}

func (Redis) GetRedisKeyPrefix() string {
	return GetEnv("CAMPAIGNS_REDIS_PREFIX", "campaigns:session:")
}
