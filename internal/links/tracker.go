package links

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mthleonn/bot-auge/internal/metrics"
	"github.com/mthleonn/bot-auge/internal/models"
	"github.com/mthleonn/bot-auge/internal/repository"
	"go.uber.org/zap"
)

// Link classification buckets.
const (
	TypeTrusted     = "trusted"
	TypeSuspicious  = "suspicious"
	TypePromotional = "promotional"
	TypeExternal    = "external"
)

const urlChars = `[a-zA-Z0-9$\-_@.&+!*(),%/:~#=?]`

var (
	schemeRe = regexp.MustCompile(`(?i)https?://` + urlChars + `+`)
	wwwRe    = regexp.MustCompile(`(?i)www\.` + urlChars + `+`)
	domainRe = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9-]{1,61}[a-zA-Z0-9]\.[a-zA-Z]{2,}`)
)

var trustedDomains = map[string]bool{
	"auge.com.br":   true,
	"youtube.com":   true,
	"youtu.be":      true,
	"instagram.com": true,
	"facebook.com":  true,
	"linkedin.com":  true,
	"twitter.com":   true,
	"x.com":         true,
	"telegram.org":  true,
	"t.me":          true,
}

var suspiciousDomains = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"short.link":  true,
	"rebrand.ly":  true,
	"ow.ly":       true,
	"buff.ly":     true,
}

var promotionalKeywords = []string{"auge", "curso", "treinamento"}

// ExtractLinks pulls URLs out of free text: full URLs, www-prefixed hosts
// and bare domain tokens. Scheme-less matches are normalized by prepending
// https://, and the result is de-duplicated preserving first occurrence.
// Re-running extraction over its own output yields the same set.
func ExtractLinks(text string) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	for _, re := range []*regexp.Regexp{schemeRe, wwwRe, domainRe} {
		for _, match := range re.FindAllString(text, -1) {
			lower := strings.ToLower(match)
			if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
				match = "https://" + match
			}
			if !seen[match] {
				seen[match] = true
				links = append(links, match)
			}
		}
	}
	return links
}

// ExtractDomain returns the lowercased hostname of a URL with any leading
// www. stripped, or "unknown" when the URL does not parse.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	domain := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(domain, "www.")
}

// Classify buckets a domain: static trusted and suspicious sets first, a
// promotional keyword heuristic next, everything else external.
func Classify(domain string) string {
	if trustedDomains[domain] {
		return TypeTrusted
	}
	if suspiciousDomains[domain] {
		return TypeSuspicious
	}
	for _, kw := range promotionalKeywords {
		if strings.Contains(domain, kw) {
			return TypePromotional
		}
	}
	return TypeExternal
}

// IsSuspicious reports whether the domain is on the suspicious set.
func IsSuspicious(domain string) bool {
	return suspiciousDomains[domain]
}

// LinkID is a deterministic 12-hex-char id for a URL. The same URL always
// hashes to the same id, so repeated shares collapse onto one identity.
func LinkID(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:12]
}

// Tracker records link events and produces the link report.
type Tracker struct {
	links  repository.LinkRepository
	logger *zap.Logger
}

func NewTracker(links repository.LinkRepository, logger *zap.Logger) *Tracker {
	return &Tracker{links: links, logger: logger}
}

// Track extracts every link from a message, persists one event per link and
// returns the extracted links for downstream moderation. A storage fault on
// one link is logged and does not stop the others.
func (t *Tracker) Track(ctx context.Context, chatID int64, userID int64, text string) []string {
	found := ExtractLinks(text)
	for _, link := range found {
		domain := ExtractDomain(link)
		click := models.LinkClick{
			UserID:   userID,
			LinkID:   LinkID(link),
			URL:      link,
			Domain:   domain,
			LinkType: Classify(domain),
			ChatID:   chatID,
		}
		if err := t.links.RecordClick(ctx, click); err != nil {
			t.logger.Error("record link event",
				zap.Int64("user_id", userID),
				zap.String("domain", domain),
				zap.Error(err))
			continue
		}
		metrics.LinkEventsRecorded.Inc()
	}
	return found
}

// RecordCommandClick persists a command-sourced link event such as
// meeting_link or links_command.
func (t *Tracker) RecordCommandClick(ctx context.Context, userID int64, linkType string) {
	click := models.LinkClick{UserID: userID, LinkType: linkType}
	if err := t.links.RecordClick(ctx, click); err != nil {
		t.logger.Error("record command click",
			zap.Int64("user_id", userID),
			zap.String("link_type", linkType),
			zap.Error(err))
		return
	}
	metrics.LinkEventsRecorded.Inc()
}

// CountToday returns how many link events a user produced since local
// midnight; backs the daily link quota. A storage fault counts as zero.
func (t *Tracker) CountToday(ctx context.Context, userID int64) int64 {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := t.links.CountForUserSince(ctx, userID, midnight)
	if err != nil {
		t.logger.Error("count user links", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return count
}

// CountRecent returns how many link events a user produced in the last
// days days. A storage fault counts as zero.
func (t *Tracker) CountRecent(ctx context.Context, userID int64, days int) int64 {
	cutoff := time.Now().AddDate(0, 0, -days)
	count, err := t.links.CountForUserSince(ctx, userID, cutoff)
	if err != nil {
		t.logger.Error("count user links", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return count
}

// Report renders the link statistics for the window as a Markdown message.
// chatID 0 means every monitored chat.
func (t *Tracker) Report(ctx context.Context, chatID int64, days int) string {
	cutoff := time.Now().AddDate(0, 0, -days)
	clicks, err := t.links.ListSince(ctx, chatID, cutoff)
	if err != nil {
		t.logger.Error("list link events", zap.Error(err))
		clicks = nil
	}
	if len(clicks) == 0 {
		return fmt.Sprintf("📊 Nenhum link compartilhado nos últimos %d dias.", days)
	}

	domains := make(map[string]int)
	types := make(map[string]int)
	uniqueLinks := make(map[string]bool)
	for _, c := range clicks {
		if c.Domain != "" {
			domains[c.Domain]++
		}
		types[c.LinkType]++
		if c.LinkID != "" {
			uniqueLinks[c.LinkID] = true
		}
	}

	totalLinks := len(uniqueLinks)
	totalClicks := len(clicks)
	avg := 0.0
	if totalLinks > 0 {
		avg = float64(totalClicks) / float64(totalLinks)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Estatísticas de Links (%d dias)*\n\n", days)
	b.WriteString("📈 *Resumo Geral:*\n")
	fmt.Fprintf(&b, "• Total de links: %d\n", totalLinks)
	fmt.Fprintf(&b, "• Domínios únicos: %d\n", len(domains))
	fmt.Fprintf(&b, "• Total de eventos: %d\n", totalClicks)
	fmt.Fprintf(&b, "• Média de eventos por link: %.1f\n\n", avg)

	b.WriteString("🏷️ *Por Tipo:*\n")
	typeEmoji := map[string]string{
		TypeTrusted:     "✅",
		TypeSuspicious:  "⚠️",
		TypePromotional: "📢",
		TypeExternal:    "🔗",
	}
	for _, lt := range sortedKeys(types) {
		emoji := typeEmoji[lt]
		if emoji == "" {
			emoji = "❓"
		}
		fmt.Fprintf(&b, "• %s %s: %d\n", emoji, titleCase(lt), types[lt])
	}

	b.WriteString("\n🌐 *Top Domínios:*\n")
	for _, d := range topDomains(domains, 5) {
		fmt.Fprintf(&b, "• `%s`: %d links\n", d, domains[d])
	}

	return b.String()
}

// Cleanup deletes link events older than the retention window and returns
// how many rows were removed.
func (t *Tracker) Cleanup(ctx context.Context, retentionDays int) int64 {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := t.links.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.logger.Error("link retention cleanup", zap.Error(err))
		return 0
	}
	t.logger.Info("link retention cleanup done", zap.Int64("deleted", deleted))
	return deleted
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func topDomains(counts map[string]int, n int) []string {
	domains := sortedKeys(counts)
	sort.SliceStable(domains, func(i, j int) bool {
		return counts[domains[i]] > counts[domains[j]]
	})
	if len(domains) > n {
		domains = domains[:n]
	}
	return domains
}
