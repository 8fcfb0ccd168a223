package transfer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/store"
)

type countProgress struct {
	max  int
	done atomic.Int64
}

func (p *countProgress) ChangeMax(n int) { p.max = n }

func (p *countProgress) Add(n int) error {
	p.done.Add(int64(n))
	return nil
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	coords := newPromptsDB(t, map[int64]string{1: "a", 2: "b", 3: "c"})
	p := newMemPlatform(".json", "ds1")
	svc := New(&store.SQLiteDialer{}, p)

	_, err := svc.Export(ctx, ExportRequest{Coordinates: coords, Table: prompts, CollectionID: "ds1"})
	require.NoError(t, err)

	for _, d := range p.docs("ds1") {
		switch d.Name {
		case "1.json":
			p.annotate(d.ID, model.Annotation{PromptID: "1", IsBest: true, Coordinates: "one"})
		case "2.json":
			p.annotate(d.ID, model.Annotation{PromptID: "1", IsBest: true, Coordinates: "two"})
		}
	}

	prog := &countProgress{}
	res, err := svc.Sweep(ctx, "ds1", UpdateRequest{Coordinates: coords, Table: prompts}, 2, WithProgress(prog))
	require.NoError(t, err)
	assert.Equal(t, &SweepResult{Updated: 2, Skipped: 1}, res)
	assert.Equal(t, 3, prog.max)
	assert.Equal(t, int64(3), prog.done.Load())

	assert.Equal(t, "one", readResponse(t, coords, 1).String)
	assert.Equal(t, "two", readResponse(t, coords, 2).String)
	assert.False(t, readResponse(t, coords, 3).Valid)
}

func TestSweep_CountsFailures(t *testing.T) {
	ctx := context.Background()
	p := newMemPlatform(".json", "ds1")
	_, err := p.Upload(ctx, "ds1", []*model.Document{
		{Name: "notanumber", Prompts: []model.Prompt{{Key: "1"}}},
	}, true)
	require.NoError(t, err)
	doc := p.docs("ds1")[0]
	p.annotate(doc.ID, model.Annotation{PromptID: "1", IsBest: true, Coordinates: "x"})

	res, err := New(&store.SQLiteDialer{}, p).Sweep(ctx, "ds1", UpdateRequest{Table: prompts}, 0)
	require.NoError(t, err)
	assert.Equal(t, &SweepResult{Failed: 1}, res)
}

func TestSweep_Empty(t *testing.T) {
	res, err := New(&store.SQLiteDialer{}, newMemPlatform(".json", "ds1")).
		Sweep(context.Background(), "ds1", UpdateRequest{Table: prompts}, 4)
	require.NoError(t, err)
	assert.Equal(t, &SweepResult{}, res)
}

func TestSweep_ListError(t *testing.T) {
	p := newMemPlatform(".json", "ds1")
	p.listErr = errors.New("boom")

	_, err := New(&store.SQLiteDialer{}, p).Sweep(context.Background(), "ds1", UpdateRequest{Table: prompts}, 1)
	assert.ErrorContains(t, err, "boom")
}
