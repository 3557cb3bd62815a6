package score

// Document is the flattened form of a score exchanged with the backend.
type Document struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	TimeSignature TimeSignature `json:"timeSignature"`
	Tempo         int           `json:"tempo"`
	Notes         []Note        `json:"notes"`
}

// Document flattens s for persistence.
func (s Score) Document() Document {
	return Document{
		Title:         s.Title,
		TimeSignature: s.TimeSignature,
		Tempo:         s.Tempo,
		Notes:         s.Flatten(),
	}
}

// Normalize fills in defaults for fields older clients leave out.
func (d Document) Normalize() Document {
	if d.Title == "" {
		d.Title = DefaultTitle
	}
	if !d.TimeSignature.Valid() {
		d.TimeSignature = FourFour
	}
	if d.Tempo == 0 {
		d.Tempo = DefaultTempo
	}
	d.Tempo = ClampTempo(d.Tempo)
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	return d
}

// Segment returns the notes starting in [start, end), measured in quarter
// notes from the beginning. A non-positive end selects through the last note.
func (d Document) Segment(start, end float64) []Note {
	out := []Note{}
	offset := 0.0
	for _, n := range d.Notes {
		if offset >= start && (end <= 0 || offset < end) {
			out = append(out, n)
		}
		offset += float64(n.Weight())
	}
	return out
}
