package credential

import "context"

// ImportOptions controls Store.Import's merge policy.
type ImportOptions struct {
	ReplaceExisting bool
	FilterDisabled  bool
}

// ImportResult reports what Import did, mirroring the panel's
// {imported, skipped, total} response shape.
type ImportResult struct {
	Imported int
	Skipped  int
	Total    int
}

// Store is the durable on-disk representation of the credential list.
// Indexes returned by Enumerate are positional and stable only within a
// single load/save cycle; callers must treat them as ephemeral.
type Store interface {
	// Load parses the persisted representation. A missing backing store
	// yields an empty list, not an error; a malformed one returns
	// errors.StorageCorrupt.
	Load(ctx context.Context) ([]*Credential, error)

	// Save writes the full list atomically.
	Save(ctx context.Context, list []*Credential) error

	// Import merges externally-sourced records into the persisted list and
	// returns the merge tally.
	Import(ctx context.Context, records []*Credential, opts ImportOptions) (ImportResult, error)

	// ReplaceAt overwrites the record at a position obtained from a prior
	// Load/Enumerate, re-authorizing a slot in place.
	ReplaceAt(ctx context.Context, index int, record *Credential) error

	// RemoveAt deletes the record at a position obtained from a prior
	// Load/Enumerate.
	RemoveAt(ctx context.Context, index int) error

	// SetEnabled toggles the enabled flag for the record at a position.
	SetEnabled(ctx context.Context, index int, enabled bool) error
}

// indexByRefreshToken builds a refresh_token -> slice-index map, falling
// back to access_token when refresh_token is absent, per the Import merge
// policy.
func indexByRefreshToken(list []*Credential) map[string]int {
	idx := make(map[string]int, len(list))
	for i, c := range list {
		key := c.RefreshToken
		if key == "" {
			key = c.AccessToken
		}
		if key != "" {
			idx[key] = i
		}
	}
	return idx
}

// mergeImport implements the Import merge policy shared by every Store
// backend so behavior cannot drift between them.
func mergeImport(existing []*Credential, records []*Credential, opts ImportOptions) ([]*Credential, ImportResult) {
	var filtered []*Credential
	skipped := 0
	for _, r := range records {
		if opts.FilterDisabled && !r.Enabled {
			skipped++
			continue
		}
		filtered = append(filtered, r)
	}

	if opts.ReplaceExisting {
		return filtered, ImportResult{Imported: len(filtered), Skipped: skipped, Total: len(filtered)}
	}

	merged := append([]*Credential(nil), existing...)
	idx := indexByRefreshToken(merged)
	imported := 0
	for _, r := range filtered {
		key := r.RefreshToken
		if key == "" {
			key = r.AccessToken
		}
		if key != "" {
			if i, ok := idx[key]; ok {
				merged[i] = overlay(merged[i], r)
				imported++
				continue
			}
		}
		merged = append(merged, r)
		if key != "" {
			idx[key] = len(merged) - 1
		}
		imported++
	}
	return merged, ImportResult{Imported: imported, Skipped: skipped, Total: len(merged)}
}

// overlay shallow-overlays incoming non-zero fields onto the existing
// record, preserving a project_id that was already set.
func overlay(existing, incoming *Credential) *Credential {
	out := existing.Clone()
	if incoming.AccessToken != "" {
		out.AccessToken = incoming.AccessToken
	}
	if incoming.ExpiresIn != 0 {
		out.ExpiresIn = incoming.ExpiresIn
	}
	if incoming.IssuedAt != 0 {
		out.IssuedAt = incoming.IssuedAt
	}
	if out.ProjectID == "" && incoming.ProjectID != "" {
		out.ProjectID = incoming.ProjectID
	}
	if incoming.Email != "" {
		out.Email = incoming.Email
	}
	out.Enabled = incoming.Enabled
	return out
}
