package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

const (
	// DefaultAPIBaseURL is the Bilibili Live API host.
	DefaultAPIBaseURL = "https://api.live.bilibili.com"

	// DefaultRoomBaseURL is the public prefix for live room pages.
	DefaultRoomBaseURL = "https://live.bilibili.com"

	// DefaultTimeout bounds each individual upstream call.
	DefaultTimeout = 10 * time.Second

	// DefaultTitle replaces a missing stream title.
	DefaultTitle = "Untitled stream"

	// liveStatusLive is the upstream live_status value for "broadcasting".
	// 0 is offline and 2 is a replay loop; both count as not live.
	liveStatusLive = 1
)

const (
	pathRoomDetail = "/room/v1/Room/get_info"
	pathUserRoom   = "/room/v1/Room/getRoomInfoOld"
	pathRoomInit   = "/room/v1/Room/room_init"
)

// ErrMalformed reports an upstream payload that could not be interpreted.
var ErrMalformed = errors.New("malformed upstream response")

// UpstreamError reports a non-zero code in an otherwise valid API envelope.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream code %d: %s", e.Code, e.Message)
}

// APIConfig configures the upstream live API client.
type APIConfig struct {
	// BaseURL defaults to DefaultAPIBaseURL.
	BaseURL string

	// RoomBaseURL defaults to DefaultRoomBaseURL.
	RoomBaseURL string

	// Timeout applies to every call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// API queries the three upstream endpoint shapes used by the default tiers.
type API struct {
	client      *fetch.Client
	baseURL     string
	roomBaseURL string
	timeout     time.Duration
}

// NewAPI creates an [API] on top of client.
func NewAPI(client *fetch.Client, cfg APIConfig) *API {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.RoomBaseURL == "" {
		cfg.RoomBaseURL = DefaultRoomBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &API{
		client:      client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		roomBaseURL: strings.TrimRight(cfg.RoomBaseURL, "/"),
		timeout:     cfg.Timeout,
	}
}

// envelope is the wrapper shared by every Bilibili Live response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

type roomDetailData struct {
	RoomID     int64  `json:"room_id"`
	LiveStatus int    `json:"live_status"`
	Title      string `json:"title"`
	UserCover  string `json:"user_cover"`
	Keyframe   string `json:"keyframe"`
	Online     int    `json:"online"`
}

type userRoomData struct {
	RoomStatus int    `json:"roomStatus"`
	LiveStatus int    `json:"liveStatus"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Cover      string `json:"cover"`
	Online     int    `json:"online"`
	RoomID     int64  `json:"roomid"`
}

type roomInitData struct {
	RoomID     int64 `json:"room_id"`
	UID        int64 `json:"uid"`
	LiveStatus int   `json:"live_status"`
}

// get fetches path with query and decodes the envelope's data into out.
func (a *API) get(ctx context.Context, path string, query url.Values, out any) error {
	target := a.baseURL + path + "?" + query.Encode()

	resp := a.client.Get(ctx, target, a.timeout)
	if err := resp.Err(); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = env.Msg
		}
		return &UpstreamError{Code: env.Code, Message: msg}
	}

	data := strings.TrimSpace(string(env.Data))
	if data == "" || data == "null" || data == "[]" || data == "{}" {
		return fmt.Errorf("%w: empty data", ErrMalformed)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// roomURL builds the public URL of a room.
func (a *API) roomURL(roomID string) string {
	return a.roomBaseURL + "/" + roomID
}

// RoomDetail queries the room detail endpoint for roomID.
func (a *API) RoomDetail(ctx context.Context, roomID string) (live.Info, error) {
	var d roomDetailData
	if err := a.get(ctx, pathRoomDetail, url.Values{"room_id": {roomID}}, &d); err != nil {
		return live.Info{}, fmt.Errorf("room detail %s: %w", roomID, err)
	}

	id := roomID
	if d.RoomID != 0 {
		id = strconv.FormatInt(d.RoomID, 10)
	}

	return live.Info{
		IsLive:   d.LiveStatus == liveStatusLive,
		Title:    titleOrDefault(d.Title),
		CoverURL: firstNonEmpty(d.UserCover, d.Keyframe),
		RoomURL:  a.roomURL(id),
		RoomID:   id,
		Online:   d.Online,
	}, nil
}

// userRoom queries the room lookup endpoint for uid.
func (a *API) userRoom(ctx context.Context, uid string) (userRoomData, error) {
	var d userRoomData
	if err := a.get(ctx, pathUserRoom, url.Values{"mid": {uid}}, &d); err != nil {
		return userRoomData{}, fmt.Errorf("room lookup %s: %w", uid, err)
	}
	return d, nil
}

// RoomInit queries the legacy room init endpoint for uid.
func (a *API) RoomInit(ctx context.Context, uid string) (live.Info, error) {
	var d roomInitData
	if err := a.get(ctx, pathRoomInit, url.Values{"id": {uid}}, &d); err != nil {
		return live.Info{}, fmt.Errorf("room init %s: %w", uid, err)
	}

	info := live.Info{
		IsLive: d.LiveStatus == liveStatusLive,
		Title:  DefaultTitle,
	}
	if d.RoomID != 0 {
		info.RoomID = strconv.FormatInt(d.RoomID, 10)
		info.RoomURL = a.roomURL(info.RoomID)
	}
	return info, nil
}

// RoomDetailTier resolves room entities with a single room detail query.
type RoomDetailTier struct {
	API *API
}

func (t RoomDetailTier) Name() string { return "room-detail" }

func (t RoomDetailTier) Applies(kind live.IDKind) bool { return kind == live.KindRoom }

func (t RoomDetailTier) Resolve(ctx context.Context, id string) Result {
	info, err := t.API.RoomDetail(ctx, id)
	if err != nil {
		return Failed(ctx, err)
	}
	return Success(info)
}

// UserRoomTier resolves user entities by looking up their room, then
// refining the reading with a room detail query. The detail endpoint is
// fresher, so its status wins; the lookup's own status is the fallback when
// the detail query fails or the user has no room id.
type UserRoomTier struct {
	API    *API
	Logger *slog.Logger
}

func (t UserRoomTier) Name() string { return "user-room" }

func (t UserRoomTier) Applies(kind live.IDKind) bool { return kind == live.KindUser }

func (t UserRoomTier) Resolve(ctx context.Context, id string) Result {
	lookup, err := t.API.userRoom(ctx, id)
	if err != nil {
		return Failed(ctx, err)
	}

	if lookup.RoomID != 0 {
		roomID := strconv.FormatInt(lookup.RoomID, 10)
		info, err := t.API.RoomDetail(ctx, roomID)
		if err == nil {
			return Success(info)
		}
		if ctx.Err() != nil {
			return Failed(ctx, err)
		}
		if t.Logger != nil {
			t.Logger.Debug("room detail failed, using lookup status",
				"entity", id,
				"room_id", roomID,
				"error", err,
			)
		}
	}

	info := live.Info{
		IsLive:   lookup.LiveStatus == liveStatusLive,
		Title:    titleOrDefault(lookup.Title),
		CoverURL: lookup.Cover,
		RoomURL:  lookup.URL,
		Online:   lookup.Online,
	}
	if lookup.RoomID != 0 {
		info.RoomID = strconv.FormatInt(lookup.RoomID, 10)
		if info.RoomURL == "" {
			info.RoomURL = t.API.roomURL(info.RoomID)
		}
	}
	return Success(info)
}

// RoomInitTier is the last-resort tier for user entities.
type RoomInitTier struct {
	API *API
}

func (t RoomInitTier) Name() string { return "room-init" }

func (t RoomInitTier) Applies(kind live.IDKind) bool { return kind == live.KindUser }

func (t RoomInitTier) Resolve(ctx context.Context, id string) Result {
	info, err := t.API.RoomInit(ctx, id)
	if err != nil {
		return Failed(ctx, err)
	}
	return Success(info)
}

// DefaultTiers returns the standard chain, cheapest and most authoritative first.
func DefaultTiers(api *API, logger *slog.Logger) []Tier {
	return []Tier{
		RoomDetailTier{API: api},
		UserRoomTier{API: api, Logger: logger},
		RoomInitTier{API: api},
	}
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
