package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

// peekView is the read-only summary `peek` prints, in table or JSON form.
type peekView struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	NoteCount          int    `json:"note_count"`
	ChunkCount         int    `json:"chunk_count"`
	EmbeddingProvider  string `json:"embedding_provider"`
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	ChunkSize          int    `json:"chunk_size"`
	LastUpdated        string `json:"last_updated"`
}

func newPeekCmd() *cobra.Command {
	var (
		chromaDBPath string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "peek <collection>",
		Short: "Inspect a collection's metadata without starting a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeek(cmd, args[0], chromaDBPath, format)
		},
	}

	cmd.Flags().StringVar(&chromaDBPath, "chromadb", "", "path to the vector store directory (required)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	_ = cmd.MarkFlagRequired("chromadb")

	return cmd
}

func runPeek(cmd *cobra.Command, name, chromaDBPath, format string) error {
	ctx := cmd.Context()

	store, err := vectorstore.Open(chromaDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	infos, err := store.ListCollections(ctx)
	if err != nil {
		return err
	}

	var found *vectorstore.CollectionInfo
	for i := range infos {
		if infos[i].Name == name {
			found = &infos[i]
			break
		}
	}
	if found == nil {
		return minerrors.CollectionNotFound(fmt.Sprintf("collection %q not found", name), nil).
			WithDetail("collection", name)
	}

	chunkCount := 0
	if h, err := store.GetCollection(ctx, name); err == nil {
		if digests, err := store.ScanNoteDigests(ctx, h); err == nil {
			for _, d := range digests {
				chunkCount += len(d.ChunkIDs)
			}
		}
	}

	view := peekView{
		Name:               found.Name,
		Description:        found.Metadata.Description,
		NoteCount:          found.Metadata.NoteCount,
		ChunkCount:         chunkCount,
		EmbeddingProvider:  found.Metadata.EmbeddingProvider,
		EmbeddingModel:     found.Metadata.EmbeddingModel,
		EmbeddingDimension: found.Metadata.EmbeddingDimension,
		ChunkSize:          found.Metadata.ChunkSize,
		LastUpdated:        found.Metadata.LastUpdated.Format("2006-01-02T15:04:05Z07:00"),
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "name:\t%s\n", view.Name)
	fmt.Fprintf(w, "description:\t%s\n", view.Description)
	fmt.Fprintf(w, "notes:\t%d\n", view.NoteCount)
	fmt.Fprintf(w, "chunks:\t%d\n", view.ChunkCount)
	fmt.Fprintf(w, "provider:\t%s\n", view.EmbeddingProvider)
	fmt.Fprintf(w, "model:\t%s\n", view.EmbeddingModel)
	fmt.Fprintf(w, "dimension:\t%d\n", view.EmbeddingDimension)
	fmt.Fprintf(w, "chunk size:\t%d\n", view.ChunkSize)
	fmt.Fprintf(w, "last updated:\t%s\n", view.LastUpdated)
	return w.Flush()
}
