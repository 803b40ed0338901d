package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Daybook/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Daybook"
	AppID             = "com.github.tartampluch.go-daybook"
	KeyringService    = "com.github.tartampluch.go-daybook"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	IconFile          = "Icon.png"
	DatabaseFileName  = "daybook.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the local database.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure data directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagDBPath       = "db"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescDBPath   = "Override the database file location"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// UI Constants & Preferences
// -----------------------------------------------------------------------------

const (
	SettingsWindowWidth = 620

	// Preference Keys
	PrefCardDAVURL      = "carddav_url"
	PrefUsername        = "username"
	PrefLanguage        = "language"
	PrefInterval        = "refresh_interval_min"
	PrefServerPort      = "server_port"
	PrefSourceMode      = "source_mode"
	PrefLocalPath       = "local_path"
	PrefRegions         = "enabled_regions"
	PrefCategories      = "active_categories"
	PrefFocusYear       = "focus_year"
	PrefReminderEnabled = "reminder_enabled"
	PrefReminderValue   = "reminder_value"
	PrefReminderUnit    = "reminder_unit"
	PrefReminderDir     = "reminder_direction"
	PrefLastRun         = "last_run_version"
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// PrefListSeparator joins multi-value preferences (regions, categories) into a
// single string, since Fyne preferences store flat scalars.
const PrefListSeparator = ","

// -----------------------------------------------------------------------------
// UI Special Days Window Constants
// -----------------------------------------------------------------------------

const (
	// Window Dimensions
	DaysWinWidth  = 680
	DaysWinHeight = 440

	// Table Column IDs
	ColIDDate     = 0
	ColIDTitle    = 1
	ColIDCategory = 2
	ColIDRegion   = 3

	// Table Layout
	ColWidthDate     = 110
	ColWidthTitle    = 280
	ColWidthCategory = 120
	ColWidthRegion   = 130

	// Display Formats & Placeholders
	DateFormatDisplay = "2006-01-02"
	TablePlaceholder  = "Cell Content"
	AgeUnknown        = "-"
	LogMsgOpenWin     = "Opening Special Days Window"
	LogMsgSorted      = "Special days sorted"

	// Sorting Indicators
	SortIconAsc  = " ▲"
	SortIconDesc = " ▼"
)

// -----------------------------------------------------------------------------
// Region & Holiday Consolidation
// -----------------------------------------------------------------------------

const (
	// MaxInlineRegions limits how many region codes are rendered inline on a
	// consolidated holiday row before collapsing into a "+N" overflow marker.
	MaxInlineRegions = 4

	// RegionSeparator joins inline region codes for display.
	RegionSeparator = " "

	// FormatRegionOverflow renders the overflow marker ("+2").
	FormatRegionOverflow = "+%d"
)

// DefaultRegions is the region subscription applied on first run.
var DefaultRegions = []string{"SE"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyWinTitle       = "win_title"
	TKeyWinDays        = "win_days_title"
	TKeyMenuRefresh    = "menu_refresh"
	TKeyMenuSettings   = "menu_settings"
	TKeyTrayStatus     = "tray_status"      // Requires Count > 0
	TKeyTrayStatusZero = "tray_status_zero" // Explicit key for 0
	TKeyNotifStart     = "notif_refresh_start"
	TKeyNotifSuccess   = "notif_refresh_success"
	TKeyNotifError     = "notif_err_refresh"
	TKeyModeCardDAV    = "mode_carddav"
	TKeyModeLocal      = "mode_local"
	TKeyLblLanguage    = "lbl_language"
	TKeyHelpLanguage   = "help_language"
	TKeyLblMinutes     = "lbl_minutes_suffix"
	TKeyLblRefresh     = "lbl_refresh_interval"
	TKeyHelpInterval   = "help_interval"
	TKeyLblPort        = "lbl_server_port"
	TKeyHelpPort       = "help_port"
	TKeyLblGeneral     = "lbl_general"
	TKeyLblEnableRem   = "lbl_enable_reminders"
	TKeyUnitDays       = "unit_days"
	TKeyUnitHours      = "unit_hours"
	TKeyUnitMinutes    = "unit_minutes"
	TKeyDirBefore      = "dir_before"
	TKeyDirAfter       = "dir_after"
	TKeyLblNotif       = "lbl_notifications"
	TKeyBtnSave        = "btn_save"
	TKeyBtnCancel      = "btn_cancel"
	TKeyLblFooter      = "lbl_footer"
	TKeyBtnBrowse      = "btn_browse"
	TKeyLblURL         = "lbl_url"
	TKeyHelpURL        = "help_carddav_url"
	TKeyLblUser        = "lbl_user"
	TKeyLblPass        = "lbl_pass"
	TKeyLblSource      = "lbl_source"
	TKeyLblRegions     = "lbl_regions"
	TKeyHelpRegions    = "help_regions"
	TKeyLblCategories  = "lbl_categories"
	TKeyHelpCategories = "help_categories"

	// Category Labels
	TKeyCatHoliday    = "cat_holiday"
	TKeyCatObservance = "cat_observance"
	TKeyCatMemo       = "cat_memo"

	// Event Summaries
	TKeyEvtSummary      = "event_summary"       // Requires Name
	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Name, Age
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Name (For age 0)

	// Column Headers & Formats
	TKeyColDate     = "col_date"
	TKeyColTitle    = "col_title"
	TKeyColCategory = "col_category"
	TKeyColRegion   = "col_region"
	TKeyFormatDate  = "format_date_short" // Date format pattern (e.g., "2006-01-02")
	TKeyAgeBirth    = "age_birth"         // Word for "Birth" / "Naissance" in list

	// Validation Errors (UI)
	TKeyErrPortReq   = "err_port_required"
	TKeyErrPortNum   = "err_port_number"
	TKeyErrPortRange = "err_port_range"
	TKeyErrLastCat   = "err_last_category"

	// Quick Memo Dialog
	TKeyBtnAddMemo   = "btn_add_memo"
	TKeyLblMemoTitle = "lbl_memo_title"
	TKeyLblAmount    = "lbl_amount"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb        = "web"
	SourceModeLocal      = "local"
	DefaultPort          = "18090"
	DefaultRefreshMin    = 60
	DefaultLanguage      = "en"
	DefaultLeapYear      = 2000 // Leap year fallback for dates like --02-29
	DefaultReminderValue = 1
	UIDSalt              = "go-daybook-v1-" // Salt for deterministic UID generation
	DisabledInterval     = 0

	// RuleUndoWindow is how long a deleted holiday rule can be restored.
	RuleUndoWindow = 4 * time.Second

	// FeedYearSpan generates feed events for FocusYear-1 .. FocusYear+1.
	FeedYearSpan = 1
)

// ISO8601 Duration Components for Reminders
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
	ISODay            = "D"
	ISOHour           = "H"
	ISOMinute         = "M"
)

// -----------------------------------------------------------------------------
// Recurrence & Rule Validation
// -----------------------------------------------------------------------------

const (
	// RecurrenceFixed is the only recurrence kind the rule model supports:
	// a fixed month/day repeated every year.
	RecurrenceFixed = "fixed"

	MinMonth = 1
	MaxMonth = 12
	MinDay   = 1
	MaxDay   = 31
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Daybook//Engine//EN"
	ICalCalName   = "Special Days"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "godaybook"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropCategories  = "CATEGORIES"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
	VCardUID  = "UID"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// File Extensions
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteFeed           = "/"
	RouteDays           = "/days"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty   = "configuration error: local path is empty"
	ErrWebURLEmpty      = "configuration error: web URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrModeUnsupport    = "configuration error: unsupported source mode"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app data dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrTrayNotSupported = "system tray not supported on this platform/driver"
	ErrLocNotInit       = "localizer not initialized"

	// Store
	ErrDBOpen        = "failed to open database"
	ErrDBMigrate     = "failed to migrate database schema"
	ErrSeedDecode    = "failed to decode embedded seed rules"
	ErrSeedApply     = "failed to seed system holiday rules"
	ErrRuleNotFound  = "holiday rule not found"
	ErrUndoExpired   = "undo window has expired"
	ErrLastFeature   = "a memo must keep at least one feature"
	ErrEmptyFeatures = "memo features must not be empty"

	// Validation
	ErrMemoTitle        = "a memo needs a title"
	ErrAmountRequired   = "expense requires a parseable amount"
	ErrLocationRequired = "mileage requires both locations"
	ErrDistanceRequired = "mileage requires a distance or an odometer pair"
	ErrTargetRequired   = "countdown requires a target date"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummary      = "Birthday: %s"
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"
	FallbackTrayError    = "Go Daybook: Refresh Error"
	FallbackTrayDefault  = "Go Daybook (%d today)"
	FallbackTrayLabel    = "Go Daybook"
	FallbackName         = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	// Returning it keeps clients from flagging the feed as invalid.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	TitleStartupError = "Startup Error"
	TitleRefreshError = "Refresh Error"

	MsgPortBusy       = "Port %s is busy or unavailable."
	MsgRefreshStarted = "Aggregation refresh started..."
	MsgRefreshFailed  = "Aggregation refresh failed. Check logs."
	MsgRefreshReq     = "Refresh requested"
	MsgWorkerStart    = "Background worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgUpdateInterval = "Updating refresh interval"
	MsgAppStop        = "Application stopped gracefully"
	MsgCtxCancel      = "Context cancelled, shutting down UI"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSkippedRule    = "Skipping rule with invalid date composition"
	MsgFeedSuccess    = "Feed generation successful"
	MsgAppStarting    = "Starting application"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgFeedUpdated    = "Feed cache updated"
	MsgDaysUpdated    = "Day cards cache updated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgToday          = "Special day found today"
	MsgSeeded         = "System holiday rules seeded"
	MsgSeedSkipped    = "System rules already present, seed skipped"
	MsgRuleRestored   = "Deleted rule restored"
	MsgImportDone     = "Contact import finished"
	MsgCacheHit       = "Holiday resolution served from cache"
	MsgCacheMiss      = "Holiday resolution recomputed"

	PlaceholderURL = "https://..."
)

// -----------------------------------------------------------------------------
// Reminder Units & Directions
// -----------------------------------------------------------------------------

const (
	UnitDays    = "d"
	UnitHours   = "h"
	UnitMinutes = "m"
	DirBefore   = "before"
	DirAfter    = "after"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyOld       = "old"
	LogKeyNew       = "new"
	LogKeyUser      = "user"
	LogKeyYear      = "year"
	LogKeyMonth     = "month"
	LogKeyRegion    = "region"
	LogKeyRegions   = "regions"
	LogKeyRule      = "rule"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"
	LogKeyToday     = "special_days_today"
	LogKeyDays      = "unique_days"
	LogKeyRows      = "rows"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyManual    = "manual"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeySortCol   = "sort_column"
	LogKeySortAsc   = "sort_asc"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDOB       = "date_of_birth"
	LogKeyDuration  = "duration_ms"
	LogKeyPath      = "path"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI      = "ui"
	CompUISet   = "ui_settings"
	CompEngine  = "engine"
	CompStore   = "store"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompImport  = "import"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
)

// -----------------------------------------------------------------------------
// UI Layout Constants
// -----------------------------------------------------------------------------

const (
	LayoutColumnsDouble = 2
)
