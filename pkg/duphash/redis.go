// Package duphash implements a Redis-backed duplicate hash index
// satisfying pkg/population.HashIndex, letting independent scheduler
// processes share one duplicate-elimination table (the distributed half
// of the teacher's combined Postgres+Redis database manager; see
// pkg/resultstore for the Postgres half and DESIGN.md's Open Question #3
// for why this does not extend to distributed scheduling itself).
package duphash

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mhsched/mhsched/pkg/solution"
)

// Index is a population.HashIndex backed by Redis sets: bucket key -> set
// of slot indices. Solutions are not stored; the owner callback supplies
// the solution at a slot for Equals resolution on collision.
type Index struct {
	ctx    context.Context
	client *redis.Client
	prefix string

	owner func(slot int) solution.Solution
}

// New creates a Redis-backed duplicate index. owner must return the
// population's current solution at a given slot, used to resolve hash
// collisions with Equals (Redis only stores the hash bucket membership,
// not the solutions themselves).
func New(ctx context.Context, dsn, keyPrefix string, owner func(slot int) solution.Solution) (*Index, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("duphash: parse dsn: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("duphash: connect: %w", err)
	}
	return &Index{ctx: ctx, client: client, prefix: keyPrefix, owner: owner}, nil
}

// Close releases the Redis connection.
func (i *Index) Close() error { return i.client.Close() }

func (i *Index) bucketKey(hash uint64) string {
	return i.prefix + ":bucket:" + strconv.FormatUint(hash, 16)
}

// Put registers slot's hash membership.
func (i *Index) Put(slot int, s solution.Solution) {
	i.client.SAdd(i.ctx, i.bucketKey(s.HashValue()), slot)
}

// Remove drops slot from the bucket of the solution the owner callback
// currently returns for slot. The index does not track slot->hash
// locally, so Remove must be called before the slot is overwritten, as
// the population package's Replace and Update do.
func (i *Index) Remove(slot int) {
	if s := i.owner(slot); s != nil {
		i.client.SRem(i.ctx, i.bucketKey(s.HashValue()), slot)
	}
}

// Find returns a slot whose solution equals s, resolved via Equals against
// every member of s's hash bucket (collisions are expected to be rare).
func (i *Index) Find(s solution.Solution) (int, bool) {
	members, err := i.client.SMembers(i.ctx, i.bucketKey(s.HashValue())).Result()
	if err != nil {
		return -1, false
	}
	for _, m := range members {
		slot, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if cand := i.owner(slot); cand != nil && cand.Equals(s) {
			return slot, true
		}
	}
	return -1, false
}

// Reset drops every key under this index's prefix.
func (i *Index) Reset() {
	iter := i.client.Scan(i.ctx, 0, i.prefix+":bucket:*", 0).Iterator()
	for iter.Next(i.ctx) {
		i.client.Del(i.ctx, iter.Val())
	}
}
