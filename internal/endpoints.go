package internal

import (
	"fmt"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/quickcourt/quickcourt/internal/ctxhelper"
	"github.com/quickcourt/quickcourt/internal/models"
	"golang.org/x/net/context"
)

// EventEndpoints is a collection of endpoints for working with the event service
type EventEndpoints struct {
	List   endpoint.Endpoint
	Get    endpoint.Endpoint
	Create endpoint.Endpoint
	Update endpoint.Endpoint
	Delete endpoint.Endpoint
}

// MembershipEndpoints is a collection of endpoints for the membership lifecycle of an event
type MembershipEndpoints struct {
	Join         endpoint.Endpoint
	Leave        endpoint.Endpoint
	TogglePaid   endpoint.Endpoint
	Participants endpoint.Endpoint
	Waitlist     endpoint.Endpoint
}

// SessionEndpoints is a collection of endpoints for working with the session service
type SessionEndpoints struct {
	Signup endpoint.Endpoint
	Login  endpoint.Endpoint
	Logout endpoint.Endpoint
	WhoAmI endpoint.Endpoint
}

// The base for all responses which always contains an "ok" property to show if the call was successful and a
// data element containing the result of the request
type basicResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

type pagingResponse struct {
	Rows uint        `json:"rows"`
	List interface{} `json:"list"`
}

// A request made when logging in
type loginRequest struct {
	User string `json:"user"`
	Pass string `json:"password"`
}

// A request for creating or updating an event, with the ID taken from the path on updates
type eventUpdateRequest struct {
	ID    string
	Patch models.EventPatch
}

// A join or leave request for a single event. The participant field is optional - when
// set, it has to match the authenticated identity
type membershipRequest struct {
	EventID     string
	Participant string `json:"participant"`
	Passcode    string `json:"passcode"`
}

// A request for toggling the paid flag of one roster participant
type togglePaidRequest struct {
	EventID string
	Name    string
}

// identityFor resolves the acting identity of the request: the authenticated user's
// display name. A participant name sent in the body may not differ from it - nobody
// acts on behalf of somebody else
func identityFor(ctx context.Context, requested string) (string, error) {
	user := ctxhelper.User(ctx)
	if user == nil {
		return "", MakeError(
			http.StatusForbidden,
			ErrCodeNotLoggedIn,
			"This function needs a logged-in user",
		)
	}
	name := user.DisplayName()
	if requested != "" && requested != name {
		return "", MakeError(
			http.StatusForbidden,
			ErrCodeNotAuthorized,
			"You cannot act on behalf of another participant",
		)
	}
	return name, nil
}

// viewerName returns the display name of the authenticated user, or "" for guests
func viewerName(ctx context.Context) string {
	if user := ctxhelper.User(ctx); user != nil {
		return user.DisplayName()
	}
	return ""
}

// repackEvent hides the passcode from everybody but the event's organizer
func repackEvent(ev *models.Event, viewer string) *models.Event {
	if ev == nil || ev.Organizer == viewer {
		return ev
	}
	ret := *ev
	ret.Passcode = ""
	return &ret
}

// repackEvents hides the passcodes of all listed events the viewer does not organize
func repackEvents(evs []models.Event, viewer string) []models.Event {
	ret := make([]models.Event, len(evs))
	for i := range evs {
		ret[i] = *repackEvent(&evs[i], viewer)
	}
	return ret
}

// -- Events -----------------------------------------------------------------------------------------------------------

// MakeEventEndpoints builds the endpoints needed to communicate with the event service
func MakeEventEndpoints(s EventService) EventEndpoints {
	return EventEndpoints{
		List:   makeListEventsEndpoint(s),
		Get:    makeGetEventEndpoint(s),
		Create: EnsureUserLoggedIn(makeCreateEventEndpoint(s)),
		Update: EnsureUserLoggedIn(makeUpdateEventEndpoint(s)),
		Delete: EnsureUserLoggedIn(makeDeleteEventEndpoint(s)),
	}
}

func makeListEventsEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		se, ok := request.(Search)
		if !ok {
			return nil, fmt.Errorf("illegal search parameter")
		}
		list, numRows, err := s.List(ctx, &se)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, pagingResponse{numRows, repackEvents(list, viewerName(ctx))}}, nil
	}
}

func makeGetEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal event ID")
		}
		ev, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, repackEvent(ev, viewerName(ctx))}, nil
	}
}

func makeCreateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		event, ok := request.(models.Event)
		if !ok {
			return nil, fmt.Errorf("illegal event parameter")
		}
		organizer, err := identityFor(ctx, "")
		if err != nil {
			return nil, err
		}
		ev, err := s.Create(ctx, &event, organizer)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

func makeUpdateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(eventUpdateRequest)
		if !ok {
			return nil, fmt.Errorf("illegal event update parameter")
		}
		actor, err := identityFor(ctx, "")
		if err != nil {
			return nil, err
		}
		ev, err := s.Update(ctx, req.ID, req.Patch, actor)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

func makeDeleteEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal event ID")
		}
		actor, err := identityFor(ctx, "")
		if err != nil {
			return nil, err
		}
		if err := s.Delete(ctx, id, actor); err != nil {
			return nil, err
		}
		return basicResponse{true, nil}, nil
	}
}

// -- Membership -------------------------------------------------------------------------------------------------------

// MakeMembershipEndpoints builds the endpoints driving the membership lifecycle engine
func MakeMembershipEndpoints(s MembershipService) MembershipEndpoints {
	return MembershipEndpoints{
		Join:         EnsureUserLoggedIn(makeJoinEndpoint(s)),
		Leave:        EnsureUserLoggedIn(makeLeaveEndpoint(s)),
		TogglePaid:   EnsureUserLoggedIn(makeTogglePaidEndpoint(s)),
		Participants: makeParticipantsEndpoint(s),
		Waitlist:     makeWaitlistEndpoint(s),
	}
}

func makeJoinEndpoint(s MembershipService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(membershipRequest)
		if !ok {
			return nil, fmt.Errorf("illegal join request")
		}
		identity, err := identityFor(ctx, req.Participant)
		if err != nil {
			return nil, err
		}
		res, err := s.Join(ctx, req.EventID, identity, req.Passcode)
		if err != nil {
			return nil, err
		}
		res.Event = repackEvent(res.Event, identity)
		return basicResponse{true, res}, nil
	}
}

func makeLeaveEndpoint(s MembershipService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(membershipRequest)
		if !ok {
			return nil, fmt.Errorf("illegal leave request")
		}
		identity, err := identityFor(ctx, req.Participant)
		if err != nil {
			return nil, err
		}
		ev, err := s.Leave(ctx, req.EventID, identity)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, repackEvent(ev, identity)}, nil
	}
}

func makeTogglePaidEndpoint(s MembershipService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(togglePaidRequest)
		if !ok {
			return nil, fmt.Errorf("illegal toggle-paid request")
		}
		actor, err := identityFor(ctx, "")
		if err != nil {
			return nil, err
		}
		ev, err := s.TogglePaid(ctx, req.EventID, actor, req.Name)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, repackEvent(ev, actor)}, nil
	}
}

func makeParticipantsEndpoint(s MembershipService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal event ID")
		}
		list, err := s.Participants(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, list}, nil
	}
}

func makeWaitlistEndpoint(s MembershipService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal event ID")
		}
		list, err := s.Waitlist(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, list}, nil
	}
}

// -- Sessions ---------------------------------------------------------------------------------------------------------

// MakeSessionEndpoints builds the endpoints needed to communicate with the Session Service
func MakeSessionEndpoints(s SessionService) SessionEndpoints {
	return SessionEndpoints{
		Signup: makeSignupEndpoint(s),
		Login:  makeLoginEndpoint(s),
		Logout: makeLogoutEndpoint(s),
		WhoAmI: makeWhoAmIEndpoint(s),
	}
}

func makeSignupEndpoint(s SessionService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(SignupRequest)
		if !ok {
			return nil, fmt.Errorf("illegal signup request")
		}
		si, err := s.Signup(ctx, req)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, si}, nil
	}
}

func makeLoginEndpoint(s SessionService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		se, ok := request.(loginRequest)
		if !ok {
			return nil, fmt.Errorf("illegal login request")
		}
		si, err := s.Login(ctx, se.User, se.Pass)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, si}, nil
	}
}

func makeLogoutEndpoint(s SessionService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal session token")
		}
		err := s.Logout(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, nil}, nil
	}
}

func makeWhoAmIEndpoint(s SessionService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, fmt.Errorf("illegal session token")
		}
		si, err := s.WhoAmI(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, si}, nil
	}
}
