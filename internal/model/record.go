package model

// ImageRecord is one captioned image from the corpus snapshot. Records are
// keyed by Filename; the first caption is the one indexed.
type ImageRecord struct {
	Filename string   `json:"filename"`
	Captions []string `json:"captions"`
	URL      string   `json:"url"`
}

// ConceptRecord is one dictionary-style definition from the corpus snapshot,
// keyed by the lowercased Word.
type ConceptRecord struct {
	Word            string   `json:"word"`
	Definition      string   `json:"definition"`
	Characteristics []string `json:"characteristics"`
	Category        string   `json:"category"`
}

const (
	EntryTypeImage   = "image"
	EntryTypeConcept = "concept"
)

// IndexEntry is the metadata attached to one indexed vector. The ordinal
// position inside the index is the only join key, so entries carry no ID.
// Image entries fill the image fields, concept entries the concept fields;
// Type tells them apart.
type IndexEntry struct {
	Type string `json:"type"`

	Filename    string   `json:"filename,omitempty"`
	Caption     string   `json:"caption,omitempty"`
	AllCaptions []string `json:"all_captions,omitempty"`
	URL         string   `json:"url,omitempty"`

	Concept         string   `json:"concept,omitempty"`
	Definition      string   `json:"definition,omitempty"`
	Characteristics []string `json:"characteristics,omitempty"`
	Category        string   `json:"category,omitempty"`
}

func ImageEntry(rec ImageRecord) IndexEntry {
	caption := ""
	if len(rec.Captions) > 0 {
		caption = rec.Captions[0]
	}
	return IndexEntry{
		Type:        EntryTypeImage,
		Filename:    rec.Filename,
		Caption:     caption,
		AllCaptions: rec.Captions,
		URL:         rec.URL,
	}
}

func ConceptEntry(rec ConceptRecord) IndexEntry {
	return IndexEntry{
		Type:            EntryTypeConcept,
		Concept:         rec.Word,
		Definition:      rec.Definition,
		Characteristics: rec.Characteristics,
		Category:        rec.Category,
	}
}
