package service

import (
	"testing"

	"marketsync/internal/models"
)

func TestValidateRunArgs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		args    models.RunArgs
		wantErr bool
	}{
		{"defaults", models.DefaultRunArgs(), false},
		{"full mode", models.RunArgs{OrderStatus: 4, DaysBack: 30, Mode: "full"}, false},
		{"zero days back", models.RunArgs{OrderStatus: 2, DaysBack: 0, Mode: "quick"}, true},
		{"bad mode", models.RunArgs{OrderStatus: 2, DaysBack: 7, Mode: "turbo"}, true},
		{"bad status", models.RunArgs{OrderStatus: 1, DaysBack: 7, Mode: "quick"}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := validateRunArgs(tc.args)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %+v", tc.args)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
