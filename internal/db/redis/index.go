package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/datahub/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

func buildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if def == nil || def.Name == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if def.Prefix == "" {
		return nil, fmt.Errorf("index prefix is required")
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("index needs at least one field")
	}

	args := []string{def.Name, "ON", "HASH", "PREFIX", "1", def.Prefix, "SCHEMA"}
	for _, f := range def.Fields {
		switch f.Type {
		case db.FieldTag:
			args = append(args, f.Name, "TAG")
		case db.FieldText:
			args = append(args, f.Name, "TEXT")
		case db.FieldNumeric:
			args = append(args, f.Name, "NUMERIC", "SORTABLE")
		case db.FieldVector:
			if f.VectorDim <= 0 {
				return nil, fmt.Errorf("vector field %s needs a dimension", f.Name)
			}
			args = append(args,
				f.Name, "VECTOR", "HNSW", "6",
				"TYPE", "FLOAT32",
				"DIM", strconv.Itoa(f.VectorDim),
				"DISTANCE_METRIC", "COSINE",
			)
		default:
			return nil, fmt.Errorf("unknown field type %q for %s", f.Type, f.Name)
		}
	}
	return args, nil
}
