package store

import (
	"context"
	"fmt"

	"pixelpaws-server/internal/model"
)

func strPtr(s string) *string { return &s }

// FixtureCats are inserted by Seed when missing.
var FixtureCats = []model.Cat{
	{
		ID:      "cat01",
		BaseURL: "https://cdn.example.com/cats/cat01/v1",
		Version: "1",
		Idle:    strPtr("cat01_idle_8fps.gif"),
		Walk:    strPtr("cat01_walk_8fps.gif"),
		Run:     strPtr("cat01_run_12fps.gif"),
		Lifted:  strPtr("cat01_fright_12fps.gif"),
		Attack:  strPtr("cat01_attack_12fps.gif"),
		Sit:     strPtr("cat01_sit_8fps.gif"),
		Liedown: strPtr("cat01_liedown_8fps.gif"),
		Jump:    strPtr("cat01_jump_12fps.gif"),
		Land:    strPtr("cat01_land_12fps.gif"),
	},
}

// Seed inserts the fixture cats that are not stored yet and returns how many
// rows it added. Running it again is a no-op.
func (s *Store) Seed(ctx context.Context) (int, error) {
	inserted := 0
	cats := s.Cats()
	for _, cat := range FixtureCats {
		created, err := cats.Ensure(ctx, cat)
		if err != nil {
			return inserted, fmt.Errorf("seed cat %s: %w", cat.ID, err)
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}
