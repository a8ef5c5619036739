package localfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func (s *Storage) readJSON(ctx context.Context, key string, dst any) error {
	f, err := s.Open(ctx, key)
	if err != nil {
		return domain.WrapError(domain.ErrStoreLoad, "load "+key, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(dst); err != nil {
		return domain.WrapError(domain.ErrStoreLoad, "load "+key, fmt.Errorf("decode json: %w", err))
	}
	return nil
}

// looseID accepts ids written either as JSON strings or numbers.
type looseID string

func (id *looseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = looseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = looseID(n.String())
	return nil
}

type chunkRecord struct {
	ID      looseID
	ChunkID looseID
	Text    string
	Extra   map[string]any
}

func (r *chunkRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &r.ID); err != nil {
			return err
		}
	}
	if v, ok := raw["chunk_id"]; ok {
		if err := json.Unmarshal(v, &r.ChunkID); err != nil {
			return err
		}
	}
	if v, ok := raw["text"]; ok {
		if err := json.Unmarshal(v, &r.Text); err != nil {
			return err
		}
	}
	r.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "id" || k == "text" {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		r.Extra[k] = val
	}
	return nil
}

func (r chunkRecord) toDomain(index int) domain.Chunk {
	id := string(r.ID)
	if id == "" {
		id = string(r.ChunkID)
	}
	if id == "" {
		id = "chunk_" + strconv.Itoa(index)
	}
	c := domain.Chunk{ID: id, Text: r.Text}
	if len(r.Extra) > 0 {
		c.Source = r.Extra
	}
	return c
}

type entityRecord struct {
	ID          looseID `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// toDomain keys entities by name when no id was stored, matching graph node
// ids.
func (r entityRecord) toDomain(index int) domain.Entity {
	id := string(r.ID)
	if id == "" {
		id = r.Name
	}
	if id == "" {
		id = "entity_" + strconv.Itoa(index)
	}
	return domain.Entity{ID: id, Name: r.Name, Type: r.Type, Description: r.Description}
}

type communityRecord struct {
	CommunityID looseID  `json:"community_id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Entities    []string `json:"entities"`
	NumEntities int      `json:"num_entities"`
	Rank        float64  `json:"rank"`
	Level       int      `json:"level"`
}

func (r communityRecord) toDomain(index int) domain.CommunityReport {
	id := string(r.CommunityID)
	if id == "" {
		id = strconv.Itoa(index)
	}
	num := r.NumEntities
	if num == 0 {
		num = len(r.Entities)
	}
	return domain.CommunityReport{
		CommunityID: id,
		Title:       r.Title,
		Summary:     r.Summary,
		Entities:    r.Entities,
		NumEntities: num,
		Rank:        r.Rank,
		Level:       r.Level,
	}
}
