package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/kardianos/osext"
	"github.com/quickcourt/quickcourt/internal/ctxhelper"
	"github.com/quickcourt/quickcourt/internal/log"
	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Defines an error that defines the HTTP status that should be returned
type httpStatuser interface {
	Status() int
}

// Defines an error that returns a machine-readable error code
type errorCoder interface {
	ErrorCode() string
}

// Defines an error that contains a data field with additional information
type dataBearer interface {
	Data() interface{}
}

type errorResponse struct {
	basicResponse
	// The error code
	Error   string      `json:"error"`
	Message string      `json:"errorMessage"`
	Details interface{} `json:"errorDetails,omitempty"`
}

// MakeHTTPHandler creates the main HTTP handler for the QuickCourt service
func MakeHTTPHandler(
	es EventService,
	ms MembershipService,
	sServ SessionService,
	logger *logrus.Entry,
) http.Handler {
	r := mux.NewRouter()

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerBefore(makeContextInjector(logger)),
		httptransport.ServerBefore(makeSessionDecoder(sServ)),
	}

	// -- Event Service --------------------------------
	{
		evEp := MakeEventEndpoints(es)

		// List
		r.Methods(http.MethodGet).Path("/events").Handler(httptransport.NewServer(
			evEp.List,
			decodeSearchRequest,
			encodeJSONResponse,
			options...,
		))

		// Get
		r.Methods(http.MethodGet).Path("/events/{id}").Handler(httptransport.NewServer(
			evEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Create
		r.Methods(http.MethodPost).Path("/events").Handler(httptransport.NewServer(
			evEp.Create,
			decodeEvent,
			encodeJSONResponse,
			options...,
		))

		// Update
		r.Methods(http.MethodPut).Path("/events/{id}").Handler(httptransport.NewServer(
			evEp.Update,
			decodeEventUpdate,
			encodeJSONResponse,
			options...,
		))

		// Delete
		r.Methods(http.MethodDelete).Path("/events/{id}").Handler(httptransport.NewServer(
			evEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Membership Service ---------------------------
	{
		mEp := MakeMembershipEndpoints(ms)

		// Join
		r.Methods(http.MethodPost).Path("/events/{id}/join").Handler(httptransport.NewServer(
			mEp.Join,
			decodeMembershipRequest,
			encodeJSONResponse,
			options...,
		))

		// Leave
		r.Methods(http.MethodPost).Path("/events/{id}/leave").Handler(httptransport.NewServer(
			mEp.Leave,
			decodeMembershipRequest,
			encodeJSONResponse,
			options...,
		))

		// TogglePaid
		r.Methods(http.MethodPut).Path("/events/{id}/participants/{name}/toggle-paid").Handler(httptransport.NewServer(
			mEp.TogglePaid,
			decodeTogglePaidRequest,
			encodeJSONResponse,
			options...,
		))

		// Participants
		r.Methods(http.MethodGet).Path("/events/{id}/participants").Handler(httptransport.NewServer(
			mEp.Participants,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Waitlist
		r.Methods(http.MethodGet).Path("/events/{id}/waitlist").Handler(httptransport.NewServer(
			mEp.Waitlist,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Session Service ------------------------------
	{
		sEp := MakeSessionEndpoints(sServ)

		// Signup
		r.Methods(http.MethodPost).Path("/signup").Handler(httptransport.NewServer(
			sEp.Signup,
			decodeSignupRequest,
			encodeJSONResponse,
			options...,
		))

		// Login
		r.Methods(http.MethodPost).Path("/login").Handler(httptransport.NewServer(
			sEp.Login,
			decodeLoginRequest,
			encodeJSONResponse,
			options...,
		))

		// Logout
		r.Methods(http.MethodPost).Path("/logout").Handler(httptransport.NewServer(
			sEp.Logout,
			decodeToken,
			encodeJSONResponse,
			options...,
		))

		// WhoAmI
		r.Methods(http.MethodGet).Path("/whoami").Handler(httptransport.NewServer(
			sEp.WhoAmI,
			decodeToken,
			encodeJSONResponse,
			options...,
		))
	}

	// Simple alive answer for checking if HTTP can be reached
	r.Methods(http.MethodGet).Path("/alive").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		data := map[string]bool{"ok": true}
		json.NewEncoder(w).Encode(data)
	})

	// Plain file service for the UI serving everything from the "ui" folder right beside the application executable
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		panic(err)
	}
	uiDir := filepath.Join(execDir, "ui")
	r.Methods(http.MethodGet).PathPrefix("/").Handler(http.FileServer(http.Dir(uiDir)))

	return r
}

// decodeLoginRequest decodes a login request from the JSON body
func decodeLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req loginRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	return req, nil
}

// decodeSignupRequest decodes a signup request from the JSON body
func decodeSignupRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req SignupRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	return req, nil
}

// decodeToken gets the token from the call's context
func decodeToken(ctx context.Context, r *http.Request) (request interface{}, err error) {
	session := ctxhelper.Session(ctx)
	if session == nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeNotLoggedIn,
			"You need an active session for this operation",
		)
	}
	return session.ID, nil
}

// decodePaginationRequest reads the pagination information from the request's query variables
func decodePaginationRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	val := r.URL.Query()
	pag := Pagination{
		Limit: 50,
	}
	if i, err := strconv.ParseUint(val.Get("offset"), 10, 64); err == nil {
		pag.Offset = uint(i)
	}
	if i, err := strconv.ParseUint(val.Get("limit"), 10, 64); err == nil {
		pag.Limit = uint(i)
	}
	return pag, nil
}

// decodeSearchRequest decodes the parameters of a search by checking the GET variables "search", "upcoming", "limit"
// and "offset"
func decodeSearchRequest(ctx context.Context, r *http.Request) (request interface{}, err error) {
	val := r.URL.Query()
	pag, _ := decodePaginationRequest(ctx, r)
	search := Search{
		Search:     val.Get("search"),
		Upcoming:   val.Get("upcoming") == "true" || val.Get("upcoming") == "1",
		Pagination: pag.(Pagination),
	}
	return search, nil
}

// decodeEvent tries to load an event object from the provided HTTP request's body
func decodeEvent(_ context.Context, r *http.Request) (interface{}, error) {
	var ev models.Event
	err := json.NewDecoder(r.Body).Decode(&ev)
	if err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	return ev, nil
}

// Decodes an event patch from an update request where the ID of the event is in the path
func decodeEventUpdate(ctx context.Context, r *http.Request) (interface{}, error) {
	var patch models.EventPatch
	err := json.NewDecoder(r.Body).Decode(&patch)
	if err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	return eventUpdateRequest{ID: id.(string), Patch: patch}, nil
}

// decodeMembershipRequest reads a join or leave request. The body is optional since the acting identity comes from
// the session anyway
func decodeMembershipRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var req membershipRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, MakeError(
				http.StatusBadRequest,
				ErrCodeIllegalJSON,
				fmt.Sprintf("Failed to decode JSON body: %v", err),
			)
		}
	}
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	req.EventID = id.(string)
	return req, nil
}

// decodeTogglePaidRequest reads the event ID and the participant name from the path variables
func decodeTogglePaidRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	vars := mux.Vars(r)
	name, ok := vars["name"]
	if !ok || name == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "No participant name provided")
	}
	return togglePaidRequest{EventID: id.(string), Name: name}, nil
}

// Decodes an ID from the "id" path variable provided by GoRilla
func decodeIDFromPath(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	str, ok := vars["id"]
	if !ok || str == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "No event ID provided")
	}
	return str, nil
}

// Encodes a typical JSON response
func encodeJSONResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// Builds an error response based on the incoming error
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		panic("encodeError with nil error")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if st, ok := err.(httpStatuser); ok {
		w.WriteHeader(st.Status())
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	ret := errorResponse{
		basicResponse: basicResponse{false, nil},
		Message:       err.Error(),
		Error:         ErrCodeUnknown,
	}
	if cd, ok := err.(errorCoder); ok {
		ret.Error = cd.ErrorCode()
	}
	if db, ok := err.(dataBearer); ok {
		if data := db.Data(); data != nil {
			if err, ok := data.(error); ok {
				ret.Details = err.Error()
			} else {
				ret.Details = data
			}
		}
	}
	json.NewEncoder(w).Encode(&ret)
}

// makeSessionDecoder returns a function that is used in every HTTP call to decode the session used, if a session
// token is sent by the client
func makeSessionDecoder(s SessionService) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		token := strings.TrimSpace(r.Header.Get("token"))
		logger := ctxhelper.Logger(ctx)
		if token != "" {
			// Try to load the session's data
			sess, user, err := s.GetContents(ctx, token, true)
			if err != nil {
				logger.WithError(err).WithField(log.FldSession, token).Error("Failed to retrieve session information")
				return ctx
			}
			if sess == nil || user == nil {
				// Nobody logged in
				return ctx
			}
			ctx = context.WithValue(ctx, ctxhelper.KeySession, *sess)
			ctx = context.WithValue(ctx, ctxhelper.KeyUser, *user)
			ctx = context.WithValue(ctx, ctxhelper.KeyLogger, logger.WithFields(logrus.Fields{
				log.FldSession: sess.ID,
				log.FldUser:    user.ID,
			}))
		}
		return ctx
	}
}

func makeContextInjector(logger *logrus.Entry) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		return context.WithValue(ctx, ctxhelper.KeyLogger, logger)
	}
}
