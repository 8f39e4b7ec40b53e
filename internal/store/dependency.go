package store

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

type DependencyStore struct {
	pool Pool
}

func NewDependencyStore(pool Pool) *DependencyStore {
	return &DependencyStore{pool: pool}
}

// Create inserts the (argument, fact) pair. A duplicate pair returns ErrConflict.
func (s *DependencyStore) Create(ctx context.Context, d *domain.ArgumentFactDependency) error {
	err := conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO argument_fact_dependencies (argument_id, fact_claim_id, dependency_strength)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		d.ArgumentID, d.FactClaimID, d.DependencyStrength,
	).Scan(&d.ID, &d.CreatedAt)
	return translate(err, "dependencies: insert")
}

func (s *DependencyStore) GetByArgument(ctx context.Context, argumentID uuid.UUID) ([]domain.DependencyLink, error) {
	rows, err := conn(ctx, s.pool).Query(ctx,
		`SELECT d.id, d.argument_id, d.fact_claim_id, d.dependency_strength, d.created_at, f.confidence
		 FROM argument_fact_dependencies d
		 JOIN fact_claims f ON f.id = d.fact_claim_id
		 WHERE d.argument_id = $1
		 ORDER BY d.created_at ASC`,
		argumentID,
	)
	if err != nil {
		return nil, translate(err, "dependencies: by argument")
	}
	defer rows.Close()

	var links []domain.DependencyLink
	for rows.Next() {
		var l domain.DependencyLink
		if err := rows.Scan(&l.ID, &l.ArgumentID, &l.FactClaimID, &l.DependencyStrength, &l.CreatedAt, &l.FactConfidence); err != nil {
			return nil, eris.Wrap(err, "dependencies: scan link")
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dependencies: by argument")
	}
	return links, nil
}

func (s *DependencyStore) GetByFact(ctx context.Context, factID uuid.UUID) ([]domain.ArgumentFactDependency, error) {
	rows, err := conn(ctx, s.pool).Query(ctx,
		`SELECT id, argument_id, fact_claim_id, dependency_strength, created_at
		 FROM argument_fact_dependencies
		 WHERE fact_claim_id = $1
		 ORDER BY created_at ASC`,
		factID,
	)
	if err != nil {
		return nil, translate(err, "dependencies: by fact")
	}
	defer rows.Close()

	var deps []domain.ArgumentFactDependency
	for rows.Next() {
		var d domain.ArgumentFactDependency
		if err := rows.Scan(&d.ID, &d.ArgumentID, &d.FactClaimID, &d.DependencyStrength, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "dependencies: scan")
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dependencies: by fact")
	}
	return deps, nil
}
