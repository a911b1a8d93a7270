package epoch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis shares epochs across processes with INCR. Epoch keys never expire:
// an expired key would read as 0 and could revive an entry stamped 0.
type Redis struct {
	rdb redis.UniversalClient
	ns  string
}

var _ Store = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{rdb: client, ns: namespace}
}

func (s *Redis) key(group string) string { return "epoch:" + s.ns + ":" + group }

func (s *Redis) Snapshot(ctx context.Context, groups []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(groups))
	if len(groups) == 0 {
		return out, nil
	}
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = s.key(g)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis epoch mget: %w", err)
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
			out[groups[i]] = 0
		case string:
			u, err := strconv.ParseUint(vv, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("redis epoch parse %q: %w", groups[i], err)
			}
			out[groups[i]] = u
		default:
			return nil, fmt.Errorf("redis epoch: unexpected type %T for %q", v, groups[i])
		}
	}
	return out, nil
}

func (s *Redis) Bump(ctx context.Context, group string) (uint64, error) {
	n, err := s.rdb.Incr(ctx, s.key(group)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis epoch incr: %w", err)
	}
	return uint64(n), nil
}
