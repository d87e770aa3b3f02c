// Package bot routes incoming chat messages to the services. The chat
// transport itself lives outside this package; the router only sees
// plain messages and answers through a Notifier, so any transport that
// can deliver text can drive it.
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/expiry"
	"github.com/expirywatch/expirybot/internal/notify"
	"github.com/expirywatch/expirybot/internal/services"
)

// Message is one inbound chat message as seen by the router.
type Message struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// LicenseManager is the license surface the router needs. Implemented
// by services.LicenseService.
type LicenseManager interface {
	Schedule(ctx context.Context, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, []time.Time, error)
	List(ctx context.Context) ([]domain.License, error)
	Delete(ctx context.Context, id uint) error
}

// HostManager is the monitored-host surface the router needs.
// Implemented by services.HostService.
type HostManager interface {
	AddBulk(ctx context.Context, input string) (added, rejected []string, err error)
	List(ctx context.Context) ([]domain.MonitoredHost, error)
	Remove(ctx context.Context, raw string) error
}

// AccessManager is the allow-list surface the router needs.
// Implemented by services.AccessService.
type AccessManager interface {
	IsAllowed(ctx context.Context, userID int64) (bool, error)
	Request(ctx context.Context, user services.UserInfo) (services.RequestOutcome, error)
	Approve(ctx context.Context, userID int64) error
	Reject(ctx context.Context, userID int64) error
	AllowChat(ctx context.Context, chatID int64) error
}

// Refresher runs one certificate sweep on demand. Implemented by
// scheduler.CertCycle; the on-demand path shares the timer's code and
// suppression state.
type Refresher interface {
	Run(ctx context.Context)
}

// pendingKind marks which multi-line input a user owes the bot.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingLicense
	pendingHosts
)

var (
	deleteRE  = regexp.MustCompile(`^/delete_(\d+)$`)
	approveRE = regexp.MustCompile(`^/approve_(\d+)$`)
	rejectRE  = regexp.MustCompile(`^/reject_(\d+)$`)
)

// Bot routes chat messages. Conversation state is per user and held in
// memory only; a restart simply drops half-finished input.
type Bot struct {
	licenses LicenseManager
	hosts    HostManager
	access   AccessManager
	refresh  Refresher
	send     notify.Notifier

	operatorID int64
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger

	mu      sync.Mutex
	pending map[int64]pendingKind
}

// New constructs a Bot.
func New(licenses LicenseManager, hosts HostManager, access AccessManager, refresh Refresher, send notify.Notifier, operatorID int64, loc *time.Location, log zerolog.Logger) *Bot {
	return &Bot{
		licenses:   licenses,
		hosts:      hosts,
		access:     access,
		refresh:    refresh,
		send:       send,
		operatorID: operatorID,
		loc:        loc,
		now:        time.Now,
		log:        log,
		pending:    make(map[int64]pendingKind),
	}
}

// HandleMessage processes one inbound message end to end: access
// gatekeeping, pending-input continuation, then command dispatch.
// Replies go to the chat the message arrived in.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	allowed, err := b.access.IsAllowed(ctx, msg.UserID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", msg.UserID).Msg("access check failed")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}
	if !allowed {
		b.handleUnknownUser(ctx, msg)
		return
	}

	// A recognized command always interrupts a pending flow.
	if b.isCommand(text) {
		b.clearPending(msg.UserID)
		b.dispatch(ctx, msg, text)
		return
	}

	switch b.takePending(msg.UserID) {
	case pendingLicense:
		b.finishScheduleLicense(ctx, msg, text)
	case pendingHosts:
		b.finishAddHosts(ctx, msg, text)
	default:
		b.reply(ctx, msg.ChatID, "Unrecognized command. Send /start for the list of commands.")
	}
}

func (b *Bot) isCommand(text string) bool {
	switch strings.ToLower(text) {
	case "/start", "schedule notification", "list notifications", "list sites", "update sites", "add site", "/approve_chat":
		return true
	}
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "remove site") {
		return true
	}
	return deleteRE.MatchString(text) || approveRE.MatchString(text) || rejectRE.MatchString(text)
}

func (b *Bot) dispatch(ctx context.Context, msg Message, text string) {
	lower := strings.ToLower(text)
	switch lower {
	case "/start":
		b.handleStart(ctx, msg)
	case "schedule notification":
		b.beginScheduleLicense(ctx, msg)
	case "list notifications":
		b.handleListLicenses(ctx, msg)
	case "list sites":
		b.handleListHosts(ctx, msg)
	case "update sites":
		b.handleRefreshHosts(ctx, msg)
	case "add site":
		b.beginAddHosts(ctx, msg)
	case "/approve_chat":
		b.handleApproveChat(ctx, msg)
	default:
		switch {
		case strings.HasPrefix(lower, "remove site"):
			b.handleRemoveHost(ctx, msg, strings.TrimSpace(text[len("remove site"):]))
		case deleteRE.MatchString(text):
			b.handleDeleteLicense(ctx, msg, deleteRE.FindStringSubmatch(text)[1])
		case approveRE.MatchString(text):
			b.handleResolveRequest(ctx, msg, approveRE.FindStringSubmatch(text)[1], true)
		case rejectRE.MatchString(text):
			b.handleResolveRequest(ctx, msg, rejectRE.FindStringSubmatch(text)[1], false)
		}
	}
}

// ----- Access gatekeeping -----

func (b *Bot) handleUnknownUser(ctx context.Context, msg Message) {
	outcome, err := b.access.Request(ctx, services.UserInfo{
		ID:        msg.UserID,
		Username:  msg.Username,
		FirstName: msg.FirstName,
		LastName:  msg.LastName,
	})
	if err != nil {
		b.log.Error().Err(err).Int64("user", msg.UserID).Msg("file access request")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}

	switch outcome {
	case services.RequestAlreadyPending:
		b.reply(ctx, msg.ChatID, "Your access request is still pending.")
	case services.RequestAlreadyAllowed:
		b.reply(ctx, msg.ChatID, "You already have access. Send /start.")
	default:
		b.reply(ctx, msg.ChatID, "Access request sent. You will be notified once it is reviewed.")
		prompt := fmt.Sprintf("Access request from %s %s (@%s, id %d).\nApprove: /approve_%d\nReject: /reject_%d",
			msg.FirstName, msg.LastName, msg.Username, msg.UserID, msg.UserID, msg.UserID)
		b.reply(ctx, b.operatorID, prompt)
	}
}

func (b *Bot) handleResolveRequest(ctx context.Context, msg Message, rawID string, approve bool) {
	if msg.UserID != b.operatorID {
		b.reply(ctx, msg.ChatID, "Only the operator can do that.")
		return
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.reply(ctx, msg.ChatID, "Malformed user id.")
		return
	}

	if approve {
		err = b.access.Approve(ctx, userID)
	} else {
		err = b.access.Reject(ctx, userID)
	}
	if err != nil {
		if err == services.ErrRequestNotFound {
			b.reply(ctx, msg.ChatID, fmt.Sprintf("No pending request for user %d.", userID))
			return
		}
		b.log.Error().Err(err).Int64("user", userID).Msg("resolve access request")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}

	if approve {
		b.reply(ctx, msg.ChatID, fmt.Sprintf("User %d approved.", userID))
		b.reply(ctx, userID, "Your access request was approved. Send /start.")
	} else {
		b.reply(ctx, msg.ChatID, fmt.Sprintf("Request from user %d rejected.", userID))
		b.reply(ctx, userID, "Your access request was rejected.")
	}
}

func (b *Bot) handleApproveChat(ctx context.Context, msg Message) {
	if msg.UserID != b.operatorID {
		b.reply(ctx, msg.ChatID, "Only the operator can do that.")
		return
	}
	if err := b.access.AllowChat(ctx, msg.ChatID); err != nil {
		b.log.Error().Err(err).Int64("chat", msg.ChatID).Msg("allow chat")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}
	b.reply(ctx, msg.ChatID, "This chat will now receive certificate notifications.")
}

// ----- Licenses -----

const startText = `Hello! I track license and certificate expiry.

Commands:
  schedule notification - schedule a license expiry reminder
  list notifications - show scheduled reminders
  list sites - show monitored sites and their certificates
  add site - add sites to certificate monitoring
  remove site <hostname> - stop monitoring a site
  update sites - re-check all certificates now`

func (b *Bot) handleStart(ctx context.Context, msg Message) {
	b.reply(ctx, msg.ChatID, startText)
}

func (b *Bot) beginScheduleLicense(ctx context.Context, msg Message) {
	b.setPending(msg.UserID, pendingLicense)
	b.reply(ctx, msg.ChatID, "Send the license details, one per line:\ncompany\nproduct\nexpiry date (DD.MM.YYYY)\nquantity (optional)")
}

func (b *Bot) finishScheduleLicense(ctx context.Context, msg Message, text string) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 || len(lines) > 4 {
		b.reply(ctx, msg.ChatID, "Expected 3 or 4 lines: company, product, expiry date (DD.MM.YYYY), optional quantity.")
		return
	}
	quantity := ""
	if len(lines) == 4 {
		quantity = lines[3]
	}

	rec, planned, err := b.licenses.Schedule(ctx, msg.UserID, lines[0], lines[1], lines[2], quantity)
	if err != nil {
		b.reply(ctx, msg.ChatID, scheduleErrorText(err))
		return
	}

	dates := make([]string, len(planned))
	for i, d := range planned {
		dates[i] = d.Format(domain.DisplayDateFormat)
	}
	b.reply(ctx, msg.ChatID, fmt.Sprintf("Scheduled notification %d for '%s' / '%s'. Reminder dates: %s.",
		rec.ID, rec.Company, rec.Product, strings.Join(dates, ", ")))
}

func scheduleErrorText(err error) string {
	switch err {
	case services.ErrInvalidDate:
		return "The expiry date must look like DD.MM.YYYY, e.g. 31.12.2026."
	case services.ErrPastExpiry:
		return "That date is already in the past."
	case services.ErrNoActionableDates:
		return "Too late to schedule a reminder for that date."
	case services.ErrDuplicateLicense:
		return "A notification for that company and product already exists."
	default:
		return "Something went wrong, please try again."
	}
}

func (b *Bot) handleListLicenses(ctx context.Context, msg Message) {
	records, err := b.licenses.List(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("list licenses")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}
	if len(records) == 0 {
		b.reply(ctx, msg.ChatID, "No scheduled notifications.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Scheduled notifications:\n")
	for _, r := range records {
		exp, err := r.Expiry()
		expText := r.ExpiryDate
		if err == nil {
			expText = exp.Format(domain.DisplayDateFormat)
		}
		fmt.Fprintf(&sb, "%d. %s / %s, expires %s", r.ID, r.Company, r.Product, expText)
		if r.Quantity != "" {
			fmt.Fprintf(&sb, ", quantity %s", r.Quantity)
		}
		fmt.Fprintf(&sb, " - /delete_%d\n", r.ID)
	}
	b.reply(ctx, msg.ChatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleDeleteLicense(ctx context.Context, msg Message, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		b.reply(ctx, msg.ChatID, "Malformed notification id.")
		return
	}
	if err := b.licenses.Delete(ctx, uint(id)); err != nil {
		if err == services.ErrLicenseNotFound {
			b.reply(ctx, msg.ChatID, fmt.Sprintf("No notification with id %d.", id))
			return
		}
		b.log.Error().Err(err).Uint64("id", id).Msg("delete license")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}
	b.reply(ctx, msg.ChatID, fmt.Sprintf("Notification %d deleted.", id))
}

// ----- Monitored hosts -----

func (b *Bot) beginAddHosts(ctx context.Context, msg Message) {
	b.setPending(msg.UserID, pendingHosts)
	b.reply(ctx, msg.ChatID, "Send the hostnames to monitor, one per line.")
}

func (b *Bot) finishAddHosts(ctx context.Context, msg Message, text string) {
	added, rejected, err := b.hosts.AddBulk(ctx, text)
	if err != nil {
		if err == services.ErrNoHostnames {
			b.reply(ctx, msg.ChatID, "No usable hostnames in that message.")
			return
		}
		b.log.Error().Err(err).Msg("bulk add hosts")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}

	var sb strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&sb, "Now monitoring: %s.", strings.Join(added, ", "))
	}
	if len(rejected) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Already monitored: %s.", strings.Join(rejected, ", "))
	}
	b.reply(ctx, msg.ChatID, sb.String())
}

func (b *Bot) handleListHosts(ctx context.Context, msg Message) {
	hosts, err := b.hosts.List(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("list hosts")
		b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		return
	}
	if len(hosts) == 0 {
		b.reply(ctx, msg.ChatID, "No monitored sites.")
		return
	}

	now := b.now().In(b.loc)
	var sb strings.Builder
	sb.WriteString("Monitored sites:\n")
	for _, h := range hosts {
		fmt.Fprintf(&sb, "%s", h.Hostname)
		if t, ok := h.CertExpiryTime(b.loc); ok {
			days := expiry.DaysBetween(now, t)
			fmt.Fprintf(&sb, " - certificate until %s (%d days)", t.Format(domain.DisplayDateFormat), days)
			if h.CommonName != "" {
				fmt.Fprintf(&sb, ", CN %s", h.CommonName)
			}
		} else {
			sb.WriteString(" - not checked yet")
		}
		sb.WriteString("\n")
	}
	b.reply(ctx, msg.ChatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleRemoveHost(ctx context.Context, msg Message, raw string) {
	if strings.TrimSpace(raw) == "" {
		b.reply(ctx, msg.ChatID, "Usage: remove site <hostname>")
		return
	}
	if err := b.hosts.Remove(ctx, raw); err != nil {
		switch err {
		case services.ErrHostNotFound:
			b.reply(ctx, msg.ChatID, fmt.Sprintf("%s is not monitored.", services.NormalizeHostname(raw)))
		default:
			b.log.Error().Err(err).Str("hostname", raw).Msg("remove host")
			b.reply(ctx, msg.ChatID, "Something went wrong, please try again.")
		}
		return
	}
	b.reply(ctx, msg.ChatID, fmt.Sprintf("Stopped monitoring %s.", services.NormalizeHostname(raw)))
}

func (b *Bot) handleRefreshHosts(ctx context.Context, msg Message) {
	b.reply(ctx, msg.ChatID, "Certificate check started.")
	b.refresh.Run(ctx)
	b.reply(ctx, msg.ChatID, "Certificate check finished.")
}

// ----- Plumbing -----

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.send.Send(ctx, chatID, text); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("reply delivery failed")
	}
}

func (b *Bot) setPending(userID int64, kind pendingKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[userID] = kind
}

// takePending returns and clears the user's pending input state.
func (b *Bot) takePending(userID int64) pendingKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	kind := b.pending[userID]
	delete(b.pending, userID)
	return kind
}

func (b *Bot) clearPending(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, userID)
}
