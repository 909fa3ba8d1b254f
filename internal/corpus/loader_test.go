package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loaderConfig(captions, dictionary string) config.CorpusConfig {
	return config.CorpusConfig{
		CaptionsFile:         captions,
		ImagesDir:            "/data/images",
		DictionaryFile:       dictionary,
		MaxImages:            100,
		MaxDictionaryEntries: 100,
		MinDefinitionLength:  10,
	}
}

func TestImages_CSVLayout(t *testing.T) {
	dir := t.TempDir()
	captions := writeFile(t, dir, "captions.csv",
		"image,caption\n"+
			"dog.jpg,a dog in the park\n"+
			"dog.jpg,a dog running on grass\n"+
			"cat.jpg,\"a cat, asleep on the sofa\"\n")
	loader := NewFileLoader(loaderConfig(captions, ""))

	records, err := loader.Images(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "dog.jpg", records[0].Filename)
	require.Equal(t, []string{"a dog in the park", "a dog running on grass"}, records[0].Captions)
	require.Equal(t, "a cat, asleep on the sofa", records[1].Captions[0])
	require.Equal(t, filepath.Join("/data/images", "dog.jpg"), records[0].URL)
}

func TestImages_TokenLayout(t *testing.T) {
	dir := t.TempDir()
	captions := writeFile(t, dir, "captions.token",
		"dog.jpg#0\ta dog in the park\n"+
			"dog.jpg#1\ta dog running on grass\n"+
			"cat.jpg#0\ta cat on the sofa\n")
	loader := NewFileLoader(loaderConfig(captions, ""))

	records, err := loader.Images(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "dog.jpg", records[0].Filename)
	require.Len(t, records[0].Captions, 2)
	require.Equal(t, "cat.jpg", records[1].Filename)
}

func TestImages_CapsCaptionsAndImages(t *testing.T) {
	dir := t.TempDir()
	content := "image,caption\n"
	for i := 0; i < 7; i++ {
		content += "dog.jpg,caption variant\n"
	}
	content += "cat.jpg,a cat\nbird.jpg,a bird\n"
	captions := writeFile(t, dir, "captions.csv", content)
	cfg := loaderConfig(captions, "")
	cfg.MaxImages = 2
	loader := NewFileLoader(cfg)

	records, err := loader.Images(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, records[0].Captions, 5)
}

func TestConcepts_ColumnDetectionAndFiltering(t *testing.T) {
	dir := t.TempDir()
	dictionary := writeFile(t, dir, "dictionary.csv",
		"word,pos,meaning\n"+
			"Dog,noun,a loyal animal kept as a pet\n"+
			"cat,noun,short\n"+
			"bird,noun,an animal that can fly and has feathers\n")
	loader := NewFileLoader(loaderConfig("", dictionary))

	records, err := loader.Concepts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "dog", records[0].Word)
	require.Equal(t, "a loyal animal kept as a pet", records[0].Definition)
	require.Equal(t, "english_word", records[0].Category)
	require.Equal(t, "bird", records[1].Word)
}

func TestConcepts_DuplicateWordKeepsPosition(t *testing.T) {
	dir := t.TempDir()
	dictionary := writeFile(t, dir, "dictionary.csv",
		"word,definition\n"+
			"dog,a loyal animal kept as a pet\n"+
			"cat,a small furry animal that purrs\n"+
			"dog,an updated definition of a dog\n")
	loader := NewFileLoader(loaderConfig("", dictionary))

	records, err := loader.Concepts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "dog", records[0].Word)
	require.Equal(t, "an updated definition of a dog", records[0].Definition)
	require.Equal(t, "cat", records[1].Word)
}

func TestConcepts_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	dictionary := writeFile(t, dir, "dictionary.csv", "term,description\nfoo,bar\n")
	loader := NewFileLoader(loaderConfig("", dictionary))

	_, err := loader.Concepts(context.Background())
	require.Error(t, err)
}

func TestExtractCharacteristics(t *testing.T) {
	out := extractCharacteristics("a loyal animal that is kept as a pet and can fetch sticks")
	require.NotEmpty(t, out)
	require.Contains(t, out, "kept as a")
	require.Contains(t, out, "fetch sticks")

	fallback := extractCharacteristics("loyal furry companion")
	require.Equal(t, []string{"loyal", "furry", "companion"}, fallback)
}
