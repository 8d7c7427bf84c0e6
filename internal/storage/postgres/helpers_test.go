// Package postgres provides a PostgreSQL implementation of the graph store.
// This file contains test helpers only available during testing.
package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all graph rows. It is intended for use in tests
// only. The method is defined in the postgres package (not the
// postgres_test package) so it has access to the unexported db field. It is
// still exported so that the postgres_test package can call it.
func (s *GraphStore) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE relations, entity_mentions, entities RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate graph tables: %w", err)
	}
	return nil
}
