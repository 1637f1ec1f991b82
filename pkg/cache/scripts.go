package cache

import (
	"github.com/go-redis/redis/v8"
)

// Lua scripts for Redis operations
var (
	setWithTagsScript   *redis.Script
	invalidateTagScript *redis.Script
)

func init() {
	// store a payload and associate its key with each tag set atomically.
	setWithTagsScript = redis.NewScript(`
		local cache_key = ARGV[1]
		local payload = ARGV[2]
		local expiration = tonumber(ARGV[3])
		redis.call('SET', cache_key, payload)
		redis.call('EXPIRE', cache_key, expiration)
		for i = 4, #ARGV do
			local tag = ARGV[i]
			redis.call('SADD', tag, cache_key)
			redis.call('EXPIRE', tag, math.max(expiration, 3600))
		end
		return 1
	`)

	// remove all cache keys recorded in a tag set, then the set itself.
	invalidateTagScript = redis.NewScript(`
		local tag = ARGV[1]
		local cache_keys = redis.call('SMEMBERS', tag)
		if #cache_keys > 0 then
			redis.call('DEL', unpack(cache_keys))
		end
		redis.call('DEL', tag)
		return #cache_keys
	`)
}
