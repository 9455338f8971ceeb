package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mthleonn/bot-auge/internal/links"
	"github.com/mthleonn/bot-auge/internal/models"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	deleted []int
	nextID  int
}

func (f *fakeSender) SendMessage(_ context.Context, _ int64, text string, _ ...[]telegram.Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) EditMessage(context.Context, int64, int, string) error { return nil }

func (f *fakeSender) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSender) deletedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deleted...)
}

type fakeUserRepo struct {
	repository.UserRepository
	user *models.User
}

func (f *fakeUserRepo) GetByID(context.Context, int64) (*models.User, error) {
	return f.user, nil
}

type fakeLinkRepo struct {
	repository.LinkRepository
	count int64
}

func (f *fakeLinkRepo) CountForUserSince(context.Context, int64, time.Time) (int64, error) {
	return f.count, nil
}

func (f *fakeLinkRepo) RecordClick(context.Context, models.LinkClick) error { return nil }

func newTestFilter(sender telegram.Sender, users repository.UserRepository, linkRepo repository.LinkRepository, adminID int64) *Filter {
	tracker := links.NewTracker(linkRepo, zap.NewNop())
	isAdmin := func(id int64) bool { return id == adminID }
	return NewFilter(sender, users, tracker, isAdmin, Options{
		MaxLinksPerMessage:   2,
		MaxMessagesPerMinute: 5,
		MaxLinksPerDay:       5,
		WarningTTL:           time.Millisecond,
	}, zap.NewNop())
}

func TestClassifyAdminBypass(t *testing.T) {
	f := newTestFilter(&fakeSender{}, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	moderate, _ := f.Classify(7, "compre agora dinheiro rápido t.me/spam")
	assert.False(t, moderate)
}

func TestClassifyKeyword(t *testing.T) {
	f := newTestFilter(&fakeSender{}, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	moderate, reason := f.Classify(1, "Compre Agora e fique rico")
	assert.True(t, moderate)
	assert.Equal(t, ReasonKeyword, reason)
}

func TestClassifyTooManyLinks(t *testing.T) {
	f := newTestFilter(&fakeSender{}, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	moderate, reason := f.Classify(1, "https://a.com https://b.com https://c.com")
	assert.True(t, moderate)
	assert.Equal(t, ReasonLinks, reason)

	moderate, _ = f.Classify(2, "https://a.com https://b.com")
	assert.False(t, moderate, "two links sit on the allowed boundary")
}

func TestClassifyRate(t *testing.T) {
	f := newTestFilter(&fakeSender{}, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	for i := 0; i < 5; i++ {
		moderate, _ := f.Classify(1, "mensagem comum")
		assert.False(t, moderate)
	}
	moderate, reason := f.Classify(1, "mensagem comum")
	assert.True(t, moderate)
	assert.Equal(t, ReasonRate, reason)
}

func TestEnforceDeletesAndWarns(t *testing.T) {
	sender := &fakeSender{}
	f := newTestFilter(sender, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	f.Enforce(context.Background(), 100, 55, telegram.Member{ID: 1, Username: "spammer"}, ReasonKeyword)

	assert.Contains(t, sender.deletedIDs(), 55)
	require.NotEmpty(t, sender.sent)
	assert.Contains(t, sender.sent[0], "@spammer")
}

func TestNeedsModeration(t *testing.T) {
	oldJoin := time.Now().Add(-48 * time.Hour)

	t.Run("suspicious domain", func(t *testing.T) {
		f := newTestFilter(&fakeSender{}, &fakeUserRepo{user: &models.User{JoinedAt: oldJoin}}, &fakeLinkRepo{}, 7)
		moderate, domains := f.NeedsModeration(context.Background(), 1, []string{"https://bit.ly/x"})
		assert.True(t, moderate)
		assert.Contains(t, domains, "bit.ly")
	})

	t.Run("trusted domain passes", func(t *testing.T) {
		f := newTestFilter(&fakeSender{}, &fakeUserRepo{user: &models.User{JoinedAt: oldJoin}}, &fakeLinkRepo{}, 7)
		moderate, _ := f.NeedsModeration(context.Background(), 1, []string{"https://youtube.com/v"})
		assert.False(t, moderate)
	})

	t.Run("daily quota exceeded", func(t *testing.T) {
		f := newTestFilter(&fakeSender{}, &fakeUserRepo{user: &models.User{JoinedAt: oldJoin}}, &fakeLinkRepo{count: 6}, 7)
		moderate, _ := f.NeedsModeration(context.Background(), 1, []string{"https://example.com"})
		assert.True(t, moderate)
	})

	t.Run("new member links are held", func(t *testing.T) {
		fresh := &models.User{JoinedAt: time.Now().Add(-time.Hour)}
		f := newTestFilter(&fakeSender{}, &fakeUserRepo{user: fresh}, &fakeLinkRepo{}, 7)
		moderate, _ := f.NeedsModeration(context.Background(), 1, []string{"https://example.com"})
		assert.True(t, moderate)
	})

	t.Run("admin bypass", func(t *testing.T) {
		f := newTestFilter(&fakeSender{}, &fakeUserRepo{}, &fakeLinkRepo{count: 100}, 7)
		moderate, _ := f.NeedsModeration(context.Background(), 7, []string{"https://bit.ly/x"})
		assert.False(t, moderate)
	})
}

func TestEnforceLinksListsDomains(t *testing.T) {
	sender := &fakeSender{}
	f := newTestFilter(sender, &fakeUserRepo{}, &fakeLinkRepo{}, 7)

	domains := []string{"a.com", "b.com", "c.com", "d.com", "e.com"}
	f.EnforceLinks(context.Background(), 100, 55, telegram.Member{ID: 1, FirstName: "Ana"}, domains)

	require.NotEmpty(t, sender.sent)
	warning := sender.sent[0]
	assert.Contains(t, warning, "a.com")
	assert.Contains(t, warning, "c.com")
	assert.NotContains(t, warning, "d.com")
	assert.Contains(t, warning, "e mais 2")
}
