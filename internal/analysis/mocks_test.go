package analysis

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/store"
	"github.com/google/uuid"
)

const validJD = "Senior Go engineer to build distributed job queues, PostgreSQL schemas and HTTP APIs."

const validAnswer = `{"matchScore": 72, "missingSkills": ["Kubernetes"], "recommendations": ["Mention queue work"]}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCompleter counts calls and returns Response or Err.
type mockCompleter struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
	calls      atomic.Int32
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	return validAnswer, nil
}

// memoryStore keeps analyses and fit scores in maps. The fit-score key is
// unique like the database constraint.
type memoryStore struct {
	mu        sync.Mutex
	analyses  []*domain.CVAnalysis
	fitScores map[string]*domain.FitScore

	SaveAnalysisFn func(ctx context.Context, a *domain.CVAnalysis) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{fitScores: make(map[string]*domain.FitScore)}
}

func fitKey(appID uuid.UUID, hash string) string { return appID.String() + "/" + hash }

func (s *memoryStore) SaveAnalysis(ctx context.Context, a *domain.CVAnalysis) error {
	if s.SaveAnalysisFn != nil {
		return s.SaveAnalysisFn(ctx, a)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, a)
	return nil
}

func (s *memoryStore) GetFitScore(_ context.Context, appID uuid.UUID, hash string) (*domain.FitScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.fitScores[fitKey(appID, hash)]
	if !ok {
		return nil, store.ErrFitScoreNotFound
	}
	return fs, nil
}

func (s *memoryStore) SaveFitScore(_ context.Context, fs *domain.FitScore) (*domain.FitScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fitKey(fs.ApplicationID, fs.JDHash)
	if existing, ok := s.fitScores[key]; ok {
		return existing, nil
	}
	s.fitScores[key] = fs
	return fs, nil
}

func (s *memoryStore) analysisCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.analyses)
}

type mockCVSource struct {
	texts map[uuid.UUID]string
}

func (m *mockCVSource) ExtractedText(_ context.Context, id uuid.UUID) (string, error) {
	text, ok := m.texts[id]
	if !ok {
		return "", store.ErrCVFileNotFound
	}
	return text, nil
}

func validRequest() Request {
	return Request{
		OwnerID:        uuid.New(),
		CVFileID:       uuid.New(),
		CVText:         "Go developer, 6 years, PostgreSQL, gRPC, message queues.",
		JobDescription: validJD,
	}
}

type progressRecorder struct {
	mu     sync.Mutex
	values []int
}

func (p *progressRecorder) ReportProgress(_ context.Context, percent int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, percent)
	return nil
}

func shortJD() string {
	return strings.Repeat("x", MinJobDescriptionLength-1)
}
