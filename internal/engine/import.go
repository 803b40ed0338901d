package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/store"
)

// ImportConfig contains all parameters required to import contacts.
type ImportConfig struct {
	Mode      string // config.SourceModeLocal or config.SourceModeWeb
	LocalPath string // Absolute path to the .vcf file
	WebURL    string // CardDAV or WebDAV URL
	WebUser   string // HTTP Basic Auth Username
	WebPass   string // HTTP Basic Auth Password
}

// Importer parses a vCard source into contact records ready for upserting.
type Importer struct {
	Fetcher VCardFetcher // Interface for network abstraction.
}

// Run executes the fetch-and-parse pipeline and returns the parsed contacts.
// Malformed cards are skipped to maximize data recovery; a card without a
// parseable birthday is still imported, with the unknown sentinel set.
func (imp *Importer) Run(ctx context.Context, cfg ImportConfig) ([]store.Contact, error) {
	log := slog.With(
		config.LogKeyComponent, config.CompImport,
		config.LogKeyMode, cfg.Mode,
	)

	reader, err := imp.acquireStream(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	// Best effort close. Errors in Close() for read-only sources are rarely actionable.
	defer func() { _ = reader.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoder := vcard.NewDecoder(reader)
	stats := struct{ processed, withBday int }{0, 0}
	var contacts []store.Contact

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompImport,
				config.LogKeyError, err)
			continue
		}

		stats.processed++

		// Name Strategy: FN (Formatted) > N (Structured) > Fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = n.Value
		}

		contact := store.Contact{Name: name, VCardUID: cardUID(card, name)}

		if bday := card.Get(config.VCardBDAY); bday != nil && bday.Value != "" {
			birthDate, yearKnown, err := parseDate(bday.Value)
			if err != nil {
				slog.Debug(config.MsgSkippedDate,
					config.LogKeyComponent, config.CompImport,
					config.LogKeyValue, bday.Value)
			} else {
				stats.withBday++
				contact.Birthday = &birthDate
				contact.BirthdayKnown = true
				contact.YearKnown = yearKnown
			}
		}

		contacts = append(contacts, contact)
	}

	log.Info(config.MsgImportDone,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.withBday),
		),
	)
	return contacts, nil
}

// acquireStream opens the appropriate data source based on configuration.
func (imp *Importer) acquireStream(ctx context.Context, cfg ImportConfig) (io.ReadCloser, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(cfg.LocalPath)
	case config.SourceModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if imp.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return imp.Fetcher.Fetch(ctx, cfg.WebURL, cfg.WebUser, cfg.WebPass)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}

// cardUID prefers the vCard's own UID property; otherwise a deterministic
// hash of the display name keeps repeated imports stable.
func cardUID(card vcard.Card, name string) string {
	if uid := card.Get(config.VCardUID); uid != nil && uid.Value != "" {
		return uid.Value
	}
	input := fmt.Sprintf(config.FormatHashInput, name, "", config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

// parseDate handles the vCard date formats seen in the wild. Truncated
// (--MM-DD) dates get the leap-safe fallback year so Feb 29 stays storable;
// YearKnown=false records that the year is a placeholder.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}

	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
