package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mthleonn/bot-auge/internal/admin"
	"github.com/mthleonn/bot-auge/internal/links"
	"github.com/mthleonn/bot-auge/internal/models"
	"github.com/mthleonn/bot-auge/internal/moderation"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettings struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{m: make(map[string]string)}
}

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m[key], nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[key] = value
	return nil
}

type fakeLinks struct {
	mu     sync.Mutex
	clicks []models.LinkClick
}

func (f *fakeLinks) RecordClick(_ context.Context, click models.LinkClick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, click)
	return nil
}

func (f *fakeLinks) ClickStats(context.Context, string, int) ([]models.LinkTypeStats, error) {
	return []models.LinkTypeStats{}, nil
}

func (f *fakeLinks) CountForUserSince(context.Context, int64, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLinks) ListSince(context.Context, int64, time.Time) ([]models.LinkClick, error) {
	return []models.LinkClick{}, nil
}

func (f *fakeLinks) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLinks) clickTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.clicks))
	for _, c := range f.clicks {
		types = append(types, c.LinkType)
	}
	return types
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *fakeUsers, *fakeSettings, *fakeLinks) {
	t.Helper()
	sender := &fakeSender{}
	users := newFakeUsers()
	settings := newFakeSettings()
	linkRepo := &fakeLinks{}
	cfg := testConfig()
	logger := zap.NewNop()

	tracker := links.NewTracker(linkRepo, logger)
	filter := moderation.NewFilter(sender, users, tracker, cfg.IsAdmin, moderation.Options{
		MaxLinksPerMessage:   cfg.MaxLinksPerMessage,
		MaxMessagesPerMinute: 5,
		MaxLinksPerDay:       5,
		WarningTTL:           time.Millisecond,
	}, logger)
	admins := admin.NewRouter(users, linkRepo, sender, cfg.IsAdmin, 0, logger)

	b := New(nil, sender, users, settings, tracker, filter, admins, cfg, logger)
	return b, sender, users, settings, linkRepo
}

func msgFrom(userID int64, chatID int64, text string) Message {
	return Message{
		ChatID:    chatID,
		MessageID: 55,
		Sender:    telegram.Member{ID: userID, Username: "user", FirstName: "Ana"},
		Text:      text,
	}
}

func TestCommandStart(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, 500, ""), "start", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Bot Auge Traders ativo")

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "start", "")
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].text, "Bem-vindo(a)")
}

func TestCommandHelpAdminSection(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "help", "")
	b.HandleCommand(context.Background(), msgFrom(7, -100, ""), "help", "")

	require.Len(t, sender.sent, 2)
	assert.NotContains(t, sender.sent[0].text, "Comandos de Admin")
	assert.Contains(t, sender.sent[1].text, "Comandos de Admin")
}

func TestCommandMeeting(t *testing.T) {
	b, sender, _, settings, linkRepo := newTestBot(t)
	ctx := context.Background()

	b.HandleCommand(ctx, msgFrom(1, -100, ""), "meeting", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "https://meet.google.com/abc")
	assert.Contains(t, linkRepo.clickTypes(), "meeting_link")

	require.NoError(t, settings.Set(ctx, "meeting_link", "https://meet.google.com/override"))
	b.HandleCommand(ctx, msgFrom(1, -100, ""), "reuniao", "")

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].text, "https://meet.google.com/override")
}

func TestCommandSetMeeting(t *testing.T) {
	b, sender, _, settings, _ := newTestBot(t)
	ctx := context.Background()

	b.HandleCommand(ctx, msgFrom(1, -100, ""), "setmeeting", "https://meet.google.com/x")
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "apenas para administradores")

	b.HandleCommand(ctx, msgFrom(7, -100, ""), "setmeeting", "meet.google.com/x")
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].text, "link válido")

	b.HandleCommand(ctx, msgFrom(7, -100, ""), "setmeeting", "https://meet.google.com/x")
	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[2].text, "atualizado")

	stored, err := settings.Get(ctx, "meeting_link")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/x", stored)
}

func TestCommandSetMeetingShowsUsage(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(7, -100, ""), "setmeeting", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Como usar")
	assert.Contains(t, sender.sent[0].text, "https://meet.google.com/abc")
}

func TestCommandStatus(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "status", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Status")
	assert.Contains(t, sender.sent[0].text, "Total de usuários: 1")
}

func TestCommandStats(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "stats", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Suas Estatísticas")
	assert.Contains(t, sender.sent[0].text, "Ana")
}

func TestCommandLinksReportsAndTracks(t *testing.T) {
	b, sender, _, _, linkRepo := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "links", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Nenhum link")
	assert.Contains(t, linkRepo.clickTypes(), "links_command")
}

func TestCommandTestWelcome(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(7, -100, ""), "testwelcome", "")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Ana")
}

func TestCommandAdminSubcommand(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(7, -100, ""), "admin", "test extra args")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Mensagem de Teste")
}

func TestUnknownCommandIgnored(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleCommand(context.Background(), msgFrom(1, -100, ""), "frobnicate", "")

	assert.Empty(t, sender.sent)
}

func TestHandleTextModeratesSpam(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleText(context.Background(), msgFrom(1, -100, "compre agora e fique rico"))

	sender.mu.Lock()
	deleted := append([]int(nil), sender.deleted...)
	sender.mu.Unlock()
	assert.Contains(t, deleted, 55)
}

func TestHandleTextIgnoresUnmonitoredChat(t *testing.T) {
	b, sender, _, _, _ := newTestBot(t)

	b.HandleText(context.Background(), msgFrom(1, 500, "compre agora"))

	assert.Empty(t, sender.sent)
	assert.Empty(t, sender.deleted)
}

func TestHandleTextTracksLinks(t *testing.T) {
	b, _, users, _, linkRepo := newTestBot(t)

	// An established member sharing a trusted link is tracked, not moderated.
	info := repository.MemberInfo{UserID: 1, Username: "user", FirstName: "Ana"}
	require.NoError(t, users.Upsert(context.Background(), info))
	users.mu.Lock()
	users.byID[1].JoinedAt = time.Now().Add(-48 * time.Hour)
	users.mu.Unlock()

	b.HandleText(context.Background(), msgFrom(1, -100, "olha https://youtube.com/watch?v=abc"))

	types := linkRepo.clickTypes()
	assert.Contains(t, types, "trusted")
}
