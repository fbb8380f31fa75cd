package assign

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func candidates(ids ...int64) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id}
	}
	return out
}

func assetIDs(as []Assignment) []int64 {
	out := make([]int64, len(as))
	for i, a := range as {
		out[i] = a.AssetID
	}
	return out
}

func TestResolveRoundRobin(t *testing.T) {
	got, err := Resolve([]string{"c1", "c2", "c3"}, candidates(10, 11), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Assignment{
		{CUJID: "c1", AssetID: 10, Index: 0},
		{CUJID: "c2", AssetID: 11, Index: 1},
		{CUJID: "c3", AssetID: 10, Index: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveManualMappingWins(t *testing.T) {
	mapping := Mapping{"c3": 11}
	got, err := Resolve([]string{"c1", "c2", "c3"}, candidates(10, 11), mapping)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]int64{10, 11, 11}, assetIDs(got)); diff != "" {
		t.Fatalf("asset ids mismatch (-want +got):\n%s", diff)
	}
	if !got[2].Manual || got[0].Manual || got[1].Manual {
		t.Fatalf("unexpected manual flags: %+v", got)
	}
}

func TestResolveStaleMappingFallsBack(t *testing.T) {
	mapping := Mapping{"c1": 99}
	got, err := Resolve([]string{"c1", "c2"}, candidates(10, 11), mapping)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got[0].AssetID != 10 || got[0].Manual {
		t.Fatalf("expected round robin fallback, got %+v", got[0])
	}
}

func TestResolveNoAssets(t *testing.T) {
	if _, err := Resolve([]string{"c1"}, nil, nil); !errors.Is(err, ErrNoAssets) {
		t.Fatalf("expected ErrNoAssets, got %v", err)
	}
}

func TestResolveRejectsDuplicateCandidates(t *testing.T) {
	if _, err := Resolve([]string{"c1"}, candidates(1, 1), nil); err == nil {
		t.Fatal("expected duplicate candidate error")
	}
}

func TestResolveEmptyCUJs(t *testing.T) {
	got, err := Resolve(nil, candidates(1), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no assignments, got %d", len(got))
	}
}

func TestResolveDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for round := 0; round < 50; round++ {
		cujs := make([]string, 1+rng.IntN(12))
		for i := range cujs {
			cujs[i] = string(rune('a'+i)) + "-cuj"
		}
		assets := candidates(1, 2, 3, 4, 5, 6)
		rng.Shuffle(len(assets), func(i, j int) { assets[i], assets[j] = assets[j], assets[i] })
		assets = assets[:1+rng.IntN(len(assets))]

		mapping := Mapping{}
		for _, c := range cujs {
			if rng.IntN(3) == 0 {
				mapping.Set(c, int64(1+rng.IntN(8)))
			}
		}

		first, err := Resolve(cujs, assets, mapping)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		for i := 0; i < 5; i++ {
			// Rebuild the map so iteration order differs between calls.
			copyMapping := Mapping{}
			for k, v := range mapping {
				copyMapping[k] = v
			}
			again, err := Resolve(cujs, assets, copyMapping)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(first, again); diff != "" {
				t.Fatalf("non-deterministic assignment (-first +again):\n%s", diff)
			}
		}
		for i, a := range first {
			if a.CUJID != cujs[i] {
				t.Fatalf("assignment %d out of order: %q", i, a.CUJID)
			}
			if assets[a.Index].ID != a.AssetID {
				t.Fatalf("index %d does not point at asset %d", a.Index, a.AssetID)
			}
		}
	}
}

func TestMappingSetClear(t *testing.T) {
	m := Mapping{}
	m.Set("c1", 1)
	m.Set("c2", 2)
	m.Set("c1", 3)
	m.Clear("c2")
	m.Clear("missing")
	if diff := cmp.Diff(Mapping{"c1": 3}, m); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}
