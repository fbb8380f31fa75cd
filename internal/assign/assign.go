package assign

import (
	"errors"
	"fmt"
)

// ErrNoAssets is returned when Resolve is called without any ready asset.
var ErrNoAssets = errors.New("no ready assets to assign")

// Candidate is a ready asset that may be assigned.
type Candidate struct {
	ID   int64
	Name string
}

// Assignment pairs a CUJ with the asset it will be evaluated against.
type Assignment struct {
	CUJID   string
	AssetID int64
	// Index is the position of the asset in the candidate list.
	Index  int
	Manual bool
}

// Mapping is a manual CUJ-id to asset-id override table.
type Mapping map[string]int64

// Set pins cujID to assetID.
func (m Mapping) Set(cujID string, assetID int64) {
	m[cujID] = assetID
}

// Clear removes any override for cujID, returning it to automatic assignment.
func (m Mapping) Clear(cujID string) {
	delete(m, cujID)
}

// Resolve returns one assignment per CUJ, in the order of cujIDs.
func Resolve(cujIDs []string, assets []Candidate, mapping Mapping) ([]Assignment, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}
	index := make(map[int64]int, len(assets))
	for i, a := range assets {
		if _, dup := index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate asset id %d in candidate list", a.ID)
		}
		index[a.ID] = i
	}

	out := make([]Assignment, len(cujIDs))
	for i, cujID := range cujIDs {
		if assetID, ok := mapping[cujID]; ok {
			if pos, ready := index[assetID]; ready {
				out[i] = Assignment{CUJID: cujID, AssetID: assetID, Index: pos, Manual: true}
				continue
			}
		}
		pos := i % len(assets)
		out[i] = Assignment{CUJID: cujID, AssetID: assets[pos].ID, Index: pos}
	}
	return out, nil
}
