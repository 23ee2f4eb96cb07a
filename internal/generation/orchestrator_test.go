package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// fakeGenClient scripts the remote: prompts matched by failSubstr fail their
// submission, everything else completes immediately with a downloadable image.
type fakeGenClient struct {
	t          *testing.T
	imageData  []byte
	credits    domain.WorkspaceCredits
	failSubstr string
	neverDone  bool

	submits      atomic.Int32
	creditsCalls atomic.Int32
	prompts      []string
}

func (f *fakeGenClient) Submit(ctx context.Context, prompt, styleID string) (domain.GenerationTask, error) {
	f.submits.Add(1)
	f.prompts = append(f.prompts, prompt)
	if f.failSubstr != "" && strings.Contains(prompt, f.failSubstr) {
		return domain.GenerationTask{}, fmt.Errorf("layer: %w: prompt rejected", domain.ErrGenerationFailed)
	}
	if f.neverDone {
		return domain.GenerationTask{ID: "task", Status: domain.TaskStatusProcessing}, nil
	}
	return domain.GenerationTask{
		ID:       "task",
		Status:   domain.TaskStatusCompleted,
		ImageURL: "https://cdn.example.com/img.png",
	}, nil
}

func (f *fakeGenClient) Status(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	return domain.GenerationTask{ID: taskID, Status: domain.TaskStatusProcessing}, nil
}

func (f *fakeGenClient) Credits(ctx context.Context) (domain.WorkspaceCredits, error) {
	f.creditsCalls.Add(1)
	return f.credits, nil
}

func (f *fakeGenClient) Download(ctx context.Context, url string) ([]byte, error) {
	return f.imageData, nil
}

func healthyCredits() domain.WorkspaceCredits {
	return domain.WorkspaceCredits{WorkspaceID: "ws", Available: 500, HasAccess: true}
}

func threeAssetSpec() domain.MechanicSpec {
	return domain.MechanicSpec{
		ID: "runner",
		Assets: []domain.AssetRequirement{
			{Key: "player", DefaultPrompt: "runner character", Required: true, Transparency: true},
			{Key: "obstacle", DefaultPrompt: "road obstacle", Required: true, Transparency: true},
			{Key: "background", DefaultPrompt: "city skyline", Required: true},
		},
	}
}

func noopSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestOrchestrator(t *testing.T, client *fakeGenClient, minCredits int) *Orchestrator {
	t.Helper()
	clock := newFakeClock()
	orch, err := NewOrchestrator(OrchestratorOptions{
		Client: client,
		Guard:  NewCreditGuard(client, minCredits, nil),
		Poller: NewPoller(PollerOptions{Timeout: 30 * time.Second, Now: clock.Now, Sleep: clock.Sleep}),
		Sleep:  noopSleep,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}
	return orch
}

func TestGenerateSetAllAssetsSucceed(t *testing.T) {
	client := &fakeGenClient{t: t, imageData: tinyPNG(t), credits: healthyCredits()}
	orch := newTestOrchestrator(t, client, 50)

	set, err := orch.GenerateSet(context.Background(), threeAssetSpec(), domain.Classification{GameName: "Road Dash"}, "style-1")
	if err != nil {
		t.Fatalf("GenerateSet returned error: %v", err)
	}
	if !set.AllValid() {
		t.Fatalf("expected all valid, got %d/%d", set.ValidCount(), len(set.Assets))
	}
	if len(set.Order) != 3 {
		t.Fatalf("expected 3 ordered keys, got %v", set.Order)
	}
	for _, key := range set.Order {
		asset := set.Assets[key]
		if asset.DataURI == "" || !strings.HasPrefix(asset.DataURI, "data:image/") {
			t.Fatalf("asset %s missing data uri", key)
		}
	}
}

func TestGenerateSetOneAssetExhaustsRetries(t *testing.T) {
	client := &fakeGenClient{t: t, imageData: tinyPNG(t), credits: healthyCredits(), failSubstr: "obstacle"}
	orch := newTestOrchestrator(t, client, 50)

	set, err := orch.GenerateSet(context.Background(), threeAssetSpec(), domain.Classification{GameName: "Road Dash"}, "style-1")
	if err != nil {
		t.Fatalf("one failed asset must not abort the batch: %v", err)
	}
	if len(set.Assets) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(set.Assets))
	}
	if set.ValidCount() != 2 {
		t.Fatalf("expected 2 valid assets, got %d", set.ValidCount())
	}
	failed := set.Assets["obstacle"]
	if failed.Valid() || failed.Err == nil {
		t.Fatalf("expected failed obstacle asset, got %+v", failed)
	}
	if _, ok := set.Manifest()["obstacle"]; ok {
		t.Fatal("failed asset must not appear in manifest")
	}
}

func TestGenerateSetInsufficientCreditsBlocksSubmit(t *testing.T) {
	client := &fakeGenClient{t: t, imageData: tinyPNG(t)}
	client.credits = domain.WorkspaceCredits{WorkspaceID: "ws", Available: 10, HasAccess: true}
	orch := newTestOrchestrator(t, client, 50)

	_, err := orch.GenerateSet(context.Background(), threeAssetSpec(), domain.Classification{GameName: "Road Dash"}, "style-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if got := client.submits.Load(); got != 0 {
		t.Fatalf("no submissions may happen without credits, got %d", got)
	}
}

func TestGenerateOneUsesFallbackPromptOnRetry(t *testing.T) {
	client := &fakeGenClient{t: t, imageData: tinyPNG(t), credits: healthyCredits(), failSubstr: "road obstacle"}
	orch := newTestOrchestrator(t, client, 50)

	spec := domain.MechanicSpec{
		ID: "runner",
		Assets: []domain.AssetRequirement{
			{Key: "obstacle", DefaultPrompt: "road obstacle", Required: true, Transparency: true},
		},
	}
	set, err := orch.GenerateSet(context.Background(), spec, domain.Classification{GameName: "Road Dash"}, "style-1")
	if err != nil {
		t.Fatalf("GenerateSet returned error: %v", err)
	}
	asset := set.Assets["obstacle"]
	if !asset.Valid() {
		t.Fatalf("expected fallback prompt to recover the asset, got error %v", asset.Err)
	}
	if len(client.prompts) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(client.prompts))
	}
	if client.prompts[1] != DefaultFallbackPrompts["obstacle"] {
		t.Fatalf("expected fallback prompt on retry, got %q", client.prompts[1])
	}
}

func TestGenerateOneKeepsPromptAfterTimeout(t *testing.T) {
	client := &fakeGenClient{t: t, imageData: tinyPNG(t), credits: healthyCredits(), neverDone: true}
	clock := newFakeClock()
	orch, err := NewOrchestrator(OrchestratorOptions{
		Client: client,
		Guard:  NewCreditGuard(client, 50, nil),
		Poller: NewPoller(PollerOptions{Timeout: 10 * time.Second, Now: clock.Now, Sleep: clock.Sleep}),
		Sleep:  noopSleep,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	spec := domain.MechanicSpec{
		ID: "tapper",
		Assets: []domain.AssetRequirement{
			{Key: "target", DefaultPrompt: "bright balloon target", Required: true, Transparency: true},
		},
	}
	set, genErr := orch.GenerateSet(context.Background(), spec, domain.Classification{GameName: "Pop It"}, "style-1")
	if genErr != nil {
		t.Fatalf("timeouts must not abort the batch: %v", genErr)
	}
	asset := set.Assets["target"]
	if !errors.Is(asset.Err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected timeout error on asset, got %v", asset.Err)
	}
	for i, prompt := range client.prompts {
		if !strings.Contains(prompt, "bright balloon target") {
			t.Fatalf("attempt %d switched prompt after timeout: %q", i, prompt)
		}
	}
}

func TestCreditGuardPassesSufficientBalance(t *testing.T) {
	client := &fakeGenClient{credits: healthyCredits()}
	guard := NewCreditGuard(client, 50, nil)

	credits, err := guard.Check(context.Background())
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if credits.Available != 500 {
		t.Fatalf("unexpected snapshot %+v", credits)
	}
}

func TestCreditGuardBlocksNoAccess(t *testing.T) {
	client := &fakeGenClient{}
	client.credits = domain.WorkspaceCredits{WorkspaceID: "ws", Available: 500, HasAccess: false}
	guard := NewCreditGuard(client, 50, nil)

	if _, err := guard.Check(context.Background()); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits without access, got %v", err)
	}
}

func TestCreditGuardRefetchesEveryCall(t *testing.T) {
	client := &fakeGenClient{credits: healthyCredits()}
	guard := NewCreditGuard(client, 50, nil)

	for i := 0; i < 3; i++ {
		if _, err := guard.Check(context.Background()); err != nil {
			t.Fatalf("Check returned error: %v", err)
		}
	}
	if got := client.creditsCalls.Load(); got != 3 {
		t.Fatalf("expected 3 credit fetches, got %d", got)
	}
}
