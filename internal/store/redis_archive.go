package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/nodeflow/pkg/api"
)

// RedisRunArchive is a RunArchive backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>              => JSON-encoded RunInfo
//	<prefix>idx:all               => SET of all archived run IDs
//	<prefix>idx:graph:<graph_id>  => SET of run IDs for a given graph
//	<prefix>idx:status:<status>   => SET of run IDs for a given status
//
// The indexes are best-effort; ListArchivedRuns filters on the payload as
// well, so a stale index entry cannot surface a wrong record.
type RedisRunArchive struct {
	client *redis.Client
	prefix string
}

var _ RunArchive = (*RedisRunArchive)(nil)

// NewRedisRunArchive creates a RedisRunArchive.
// prefix is optional but recommended (e.g. "nodeflow:").
func NewRedisRunArchive(client *redis.Client, prefix string) *RedisRunArchive {
	if prefix == "" {
		prefix = "nodeflow:"
	}
	return &RedisRunArchive{
		client: client,
		prefix: prefix,
	}
}

func (a *RedisRunArchive) keyRun(id string) string {
	return a.prefix + "run:" + id
}

func (a *RedisRunArchive) keyAll() string {
	return a.prefix + "idx:all"
}

func (a *RedisRunArchive) keyGraph(graphID string) string {
	return a.prefix + "idx:graph:" + graphID
}

func (a *RedisRunArchive) keyStatus(status api.RunStatus) string {
	return a.prefix + "idx:status:" + string(status)
}

func (a *RedisRunArchive) ArchiveRun(ctx context.Context, run *api.RunInfo) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	if err := a.client.Set(ctx, a.keyRun(run.RunID), data, 0).Err(); err != nil {
		return err
	}

	// Index updates are not treated as fatal.
	pipe := a.client.TxPipeline()
	pipe.SAdd(ctx, a.keyAll(), run.RunID)
	pipe.SAdd(ctx, a.keyGraph(run.GraphID), run.RunID)
	pipe.SAdd(ctx, a.keyStatus(run.Status), run.RunID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (a *RedisRunArchive) GetArchivedRun(ctx context.Context, id string) (*api.RunInfo, error) {
	data, err := a.client.Get(ctx, a.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, api.ErrRunNotFound
		}
		return nil, err
	}

	var run api.RunInfo
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (a *RedisRunArchive) ListArchivedRuns(ctx context.Context, filter RunFilter) ([]*api.RunInfo, error) {
	var ids []string
	var err error

	switch {
	case filter.GraphID != "" && filter.Status != "":
		ids, err = a.client.SInter(ctx,
			a.keyGraph(filter.GraphID),
			a.keyStatus(filter.Status),
		).Result()
	case filter.GraphID != "":
		ids, err = a.client.SMembers(ctx, a.keyGraph(filter.GraphID)).Result()
	case filter.Status != "":
		ids, err = a.client.SMembers(ctx, a.keyStatus(filter.Status)).Result()
	default:
		ids, err = a.client.SMembers(ctx, a.keyAll()).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.RunInfo{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.RunInfo{}, nil
	}

	pipe := a.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, a.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var runs []*api.RunInfo
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}

		var run api.RunInfo
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, err
		}
		if filter.GraphID != "" && run.GraphID != filter.GraphID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, &run)
	}

	return runs, nil
}
