package corpus

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/config"
	"github.com/clipdex/clipdex/internal/model"
)

// FileLoader turns the raw caption and dictionary files into the normalized
// read-only records the index build consumes. Both loads are snapshots; the
// loader holds no state between calls.
type FileLoader struct {
	cfg config.CorpusConfig
}

func NewFileLoader(cfg config.CorpusConfig) *FileLoader {
	return &FileLoader{cfg: cfg}
}

// Images parses the captions file. Two layouts are recognized: the CSV
// layout with an "image,caption" header, and the token layout with
// tab-separated "name.jpg#idx<TAB>caption" lines. Captions group by
// filename in first-seen order, at most five per image.
func (l *FileLoader) Images(ctx context.Context) ([]model.ImageRecord, error) {
	file, err := os.Open(l.cfg.CaptionsFile)
	if err != nil {
		return nil, fmt.Errorf("open captions file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	header, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read captions header: %w", err)
	}

	captionsByFile := make(map[string][]string)
	var order []string
	record := func(name, caption string) {
		name = strings.TrimSpace(name)
		caption = strings.TrimSpace(caption)
		if name == "" || caption == "" {
			return
		}
		if _, seen := captionsByFile[name]; !seen {
			order = append(order, name)
		}
		if len(captionsByFile[name]) < 5 {
			captionsByFile[name] = append(captionsByFile[name], caption)
		}
	}

	if isCaptionCSVHeader(header) {
		csvReader := csv.NewReader(reader)
		csvReader.FieldsPerRecord = -1
		for {
			row, err := csvReader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("parse captions csv: %w", err)
			}
			if len(row) < 2 {
				continue
			}
			record(row[0], strings.Join(row[1:], ","))
		}
	} else {
		parseTokenLine(header, record)
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			parseTokenLine(scanner.Text(), record)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan captions file: %w", err)
		}
	}

	if len(order) > l.cfg.MaxImages {
		order = order[:l.cfg.MaxImages]
	}
	records := make([]model.ImageRecord, 0, len(order))
	for _, name := range order {
		records = append(records, model.ImageRecord{
			Filename: name,
			Captions: captionsByFile[name],
			URL:      l.imageURL(name),
		})
	}
	logutil.GetLogger(ctx).Info("image corpus loaded",
		zap.String("file", l.cfg.CaptionsFile),
		zap.Int("images", len(records)),
	)
	return records, nil
}

func isCaptionCSVHeader(header string) bool {
	lower := strings.ToLower(header)
	return strings.Contains(lower, "image") && strings.Contains(lower, "caption")
}

func parseTokenLine(line string, record func(name, caption string)) {
	parts := strings.SplitN(strings.TrimSpace(line), "\t", 2)
	if len(parts) != 2 {
		return
	}
	name := parts[0]
	if hash := strings.Index(name, "#"); hash >= 0 {
		name = name[:hash]
	}
	record(name, parts[1])
}

func (l *FileLoader) imageURL(name string) string {
	if l.cfg.ImagesDir == "" {
		return name
	}
	return filepath.Join(l.cfg.ImagesDir, name)
}

// Concepts parses the dictionary CSV. Column positions are detected from
// the header, words are lowercased, and entries with missing or too-short
// definitions are skipped. For duplicate words the last row wins, keeping
// the first row's position so the build order stays deterministic.
func (l *FileLoader) Concepts(ctx context.Context) ([]model.ConceptRecord, error) {
	file, err := os.Open(l.cfg.DictionaryFile)
	if err != nil {
		return nil, fmt.Errorf("open dictionary file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	csvReader.FieldsPerRecord = -1
	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dictionary header: %w", err)
	}
	wordCol, defCol := detectColumns(header)
	if wordCol < 0 || defCol < 0 {
		return nil, fmt.Errorf("dictionary csv: word/definition columns not found in %v", header)
	}

	byWord := make(map[string]int)
	var records []model.ConceptRecord
	skipped := 0
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse dictionary csv: %w", err)
		}
		if wordCol >= len(row) || defCol >= len(row) {
			skipped++
			continue
		}
		word := strings.ToLower(strings.TrimSpace(row[wordCol]))
		definition := strings.TrimSpace(row[defCol])
		if word == "" || definition == "" || len(definition) < l.cfg.MinDefinitionLength {
			skipped++
			continue
		}
		rec := model.ConceptRecord{
			Word:            word,
			Definition:      definition,
			Characteristics: extractCharacteristics(definition),
			Category:        "english_word",
		}
		if pos, seen := byWord[word]; seen {
			records[pos] = rec
			continue
		}
		if len(records) >= l.cfg.MaxDictionaryEntries {
			break
		}
		byWord[word] = len(records)
		records = append(records, rec)
	}
	logutil.GetLogger(ctx).Info("concept corpus loaded",
		zap.String("file", l.cfg.DictionaryFile),
		zap.Int("concepts", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

func detectColumns(header []string) (int, int) {
	wordCol, defCol := -1, -1
	for i, col := range header {
		lower := strings.ToLower(col)
		switch {
		case wordCol < 0 && strings.Contains(lower, "word"):
			wordCol = i
		case defCol < 0 && (strings.Contains(lower, "definition") || strings.Contains(lower, "meaning") || strings.Contains(lower, "def")):
			defCol = i
		}
	}
	return wordCol, defCol
}

var characteristicMarkers = map[string]bool{
	"is": true, "are": true, "has": true, "have": true, "can": true,
	"used": true, "type": true, "kind": true, "form": true,
}

// extractCharacteristics pulls short phrases following marker words out of
// a definition, falling back to the leading words when none match.
func extractCharacteristics(definition string) []string {
	words := strings.Fields(strings.ToLower(definition))
	var out []string
	for i, word := range words {
		if !characteristicMarkers[word] || i+1 >= len(words) {
			continue
		}
		end := i + 4
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i+1:end], " "))
		if len(out) == 5 {
			return out
		}
	}
	if len(out) == 0 {
		end := 5
		if end > len(words) {
			end = len(words)
		}
		out = words[:end]
	}
	return out
}
