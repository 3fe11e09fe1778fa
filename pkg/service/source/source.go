package source

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/domain/model"
	"github.com/secmon-lab/autocrm/pkg/utils/safe"
)

const gcsScheme = "gs://"

// record is one element of a knowledge import file
type record struct {
	ID        model.KnowledgeID  `json:"id"`
	Topic     string             `json:"topic"`
	Subtopic  string             `json:"subtopic"`
	Text      string             `json:"text"`
	Embedding model.RawEmbedding `json:"embedding"`
}

// Decode reads a JSON array of knowledge records
func Decode(r io.Reader) ([]*model.KnowledgeEntry, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, goerr.Wrap(err, "failed to decode knowledge file")
	}

	entries := make([]*model.KnowledgeEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, &model.KnowledgeEntry{
			ID:        rec.ID,
			Topic:     rec.Topic,
			Subtopic:  rec.Subtopic,
			Text:      rec.Text,
			Embedding: rec.Embedding,
		})
	}
	return entries, nil
}

// Encode writes entries in the import file format
func Encode(w io.Writer, entries []*model.KnowledgeEntry) error {
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		records = append(records, record{
			ID:        e.ID,
			Topic:     e.Topic,
			Subtopic:  e.Subtopic,
			Text:      e.Text,
			Embedding: e.Embedding,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return goerr.Wrap(err, "failed to encode knowledge file")
	}
	return nil
}

// IsGCS reports whether location is a Cloud Storage URL
func IsGCS(location string) bool {
	return strings.HasPrefix(location, gcsScheme)
}

// ParseGCS splits gs://bucket/object into bucket and object
func ParseGCS(location string) (string, string, error) {
	rest := strings.TrimPrefix(location, gcsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !IsGCS(location) || !ok || bucket == "" || object == "" {
		return "", "", goerr.New("invalid Cloud Storage location", goerr.V("location", location))
	}
	return bucket, object, nil
}

// Load reads knowledge entries from a local file or a gs://bucket/object URL
func Load(ctx context.Context, location string) ([]*model.KnowledgeEntry, error) {
	if IsGCS(location) {
		return loadGCS(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open knowledge file", goerr.V("path", location))
	}
	defer safe.Close(ctx, f)

	entries, err := Decode(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load knowledge file", goerr.V("path", location))
	}
	return entries, nil
}

func loadGCS(ctx context.Context, location string) ([]*model.KnowledgeEntry, error) {
	bucket, object, err := ParseGCS(location)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	defer safe.Close(ctx, client)

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open Cloud Storage object",
			goerr.V("bucket", bucket),
			goerr.V("object", object))
	}
	defer safe.Close(ctx, reader)

	entries, err := Decode(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load knowledge object", goerr.V("location", location))
	}
	return entries, nil
}
