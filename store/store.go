// Package store persists score documents.
package store

import (
	"context"
	"errors"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rapidmidiex/rmxscore/score"
)

type (
	Store interface {
		// Create saves a new document under a fresh ID and returns it.
		Create(ctx context.Context, doc score.Document) (score.Document, error)
		Get(ctx context.Context, id string) (score.Document, error)
		// Update applies a patch to an existing document.
		Update(ctx context.Context, id string, p Patch) (score.Document, error)
		// List returns every document, oldest first.
		List(ctx context.Context) ([]score.Document, error)
	}

	// Patch holds the fields of an update. Nil fields are left unchanged.
	// Notes is sent as null when unchanged so an empty list clears the score.
	Patch struct {
		Title         *string              `json:"title,omitempty"`
		TimeSignature *score.TimeSignature `json:"timeSignature,omitempty"`
		Tempo         *int                 `json:"tempo,omitempty"`
		Notes         []score.Note         `json:"notes"`
	}
)

var ErrNotFound = errors.New("score not found")

// NewID returns a short, URL safe document ID.
func NewID() string {
	return shortuuid.New()
}

// PatchFrom builds a patch replacing every field of doc.
func PatchFrom(doc score.Document) Patch {
	notes := doc.Notes
	if notes == nil {
		notes = []score.Note{}
	}
	return Patch{
		Title:         &doc.Title,
		TimeSignature: &doc.TimeSignature,
		Tempo:         &doc.Tempo,
		Notes:         notes,
	}
}

// Apply returns doc with the patch's fields replaced. Empty titles and
// unsupported time signatures are ignored.
func (p Patch) Apply(doc score.Document) score.Document {
	if p.Title != nil && *p.Title != "" {
		doc.Title = *p.Title
	}
	if p.TimeSignature != nil && p.TimeSignature.Valid() {
		doc.TimeSignature = *p.TimeSignature
	}
	if p.Tempo != nil {
		doc.Tempo = score.ClampTempo(*p.Tempo)
	}
	if p.Notes != nil {
		doc.Notes = cloneNotes(p.Notes)
	}
	return doc.Normalize()
}

func cloneNotes(notes []score.Note) []score.Note {
	out := make([]score.Note, len(notes))
	copy(out, notes)
	return out
}

func clone(doc score.Document) score.Document {
	doc.Notes = cloneNotes(doc.Notes)
	return doc
}
