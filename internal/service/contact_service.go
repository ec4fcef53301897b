package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/smartbill/smartbill/internal/middleware"
	"github.com/smartbill/smartbill/internal/models"
	"github.com/smartbill/smartbill/internal/storage"
)

// ContactPayload is the wire form of a contact.
type ContactPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

// GroupMemberPayload is the wire form of a group member.
type GroupMemberPayload struct {
	ContactID   string `json:"contact_id"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
	IsCreator   bool   `json:"is_creator"`
}

// GroupPayload is the wire form of a contact group.
type GroupPayload struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Members   []GroupMemberPayload `json:"members"`
	CreatedAt int64                `json:"created_at"`
}

// AddContactRequest adds a friend by email.
type AddContactRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// ListContactsRequest is empty; the user comes from the session.
type ListContactsRequest struct{}

// ListContactsResponse is the user's contacts in insertion order.
type ListContactsResponse struct {
	Contacts []ContactPayload `json:"contacts"`
}

// UpdateContactRequest changes a contact's nickname.
type UpdateContactRequest struct {
	ContactID string `json:"contact_id"`
	Nickname  string `json:"nickname"`
}

// DeleteContactRequest removes a contact.
type DeleteContactRequest struct {
	ContactID string `json:"contact_id"`
}

// EmptyResponse is the response for operations with nothing to return.
type EmptyResponse struct{}

// CreateGroupRequest creates a named group from existing contacts. The
// creator is always included as a member.
type CreateGroupRequest struct {
	Name       string   `json:"name"`
	ContactIDs []string `json:"contact_ids"`
}

// ListGroupsRequest is empty; the user comes from the session.
type ListGroupsRequest struct{}

// ListGroupsResponse is the user's groups.
type ListGroupsResponse struct {
	Groups []GroupPayload `json:"groups"`
}

// DeleteGroupRequest removes a group.
type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

// ContactService handles contact and contact-group management.
type ContactService struct {
	store storage.Store
}

// NewContactService creates a ContactService.
func NewContactService(store storage.Store) *ContactService {
	return &ContactService{store: store}
}

// AddContact adds a friend by email.
func (s *ContactService) AddContact(ctx context.Context, req *connect.Request[AddContactRequest]) (*connect.Response[ContactPayload], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Msg.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("valid email required"))
	}
	if email == strings.ToLower(middleware.GetEmail(ctx)) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("cannot add yourself as a contact"))
	}

	contact := &models.Contact{
		UserID:      userID,
		FriendEmail: email,
		Nickname:    strings.TrimSpace(req.Msg.Nickname),
	}
	if err := s.store.AddContact(ctx, contact); err != nil {
		slog.Warn("AddContact failed", "error", err)
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("contact already exists"))
	}

	return connect.NewResponse(contactPayload(contact)), nil
}

// ListContacts returns the user's contacts.
func (s *ContactService) ListContacts(ctx context.Context, req *connect.Request[ListContactsRequest]) (*connect.Response[ListContactsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	contacts, err := s.store.ListContacts(ctx, userID)
	if err != nil {
		slog.Error("ListContacts failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	payloads := make([]ContactPayload, len(contacts))
	for i := range contacts {
		payloads[i] = *contactPayload(&contacts[i])
	}

	return connect.NewResponse(&ListContactsResponse{Contacts: payloads}), nil
}

// UpdateContact changes a contact's nickname.
func (s *ContactService) UpdateContact(ctx context.Context, req *connect.Request[UpdateContactRequest]) (*connect.Response[EmptyResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	if err := s.store.UpdateContactNickname(ctx, userID, req.Msg.ContactID, strings.TrimSpace(req.Msg.Nickname)); err != nil {
		slog.Warn("UpdateContact failed", "contact_id", req.Msg.ContactID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	return connect.NewResponse(&EmptyResponse{}), nil
}

// DeleteContact removes a contact.
func (s *ContactService) DeleteContact(ctx context.Context, req *connect.Request[DeleteContactRequest]) (*connect.Response[EmptyResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	if err := s.store.DeleteContact(ctx, userID, req.Msg.ContactID); err != nil {
		slog.Warn("DeleteContact failed", "contact_id", req.Msg.ContactID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	return connect.NewResponse(&EmptyResponse{}), nil
}

// CreateGroup creates a group from the user's contacts, always including the
// user themselves as the creator member.
func (s *ContactService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupPayload], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	if strings.TrimSpace(req.Msg.Name) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group name required"))
	}
	if len(req.Msg.ContactIDs) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("at least one contact required"))
	}

	contacts, err := s.store.ListContacts(ctx, userID)
	if err != nil {
		slog.Error("CreateGroup: contact lookup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	byID := make(map[string]models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	members := make([]models.GroupMember, 0, len(req.Msg.ContactIDs)+1)
	for _, id := range req.Msg.ContactIDs {
		contact, ok := byID[id]
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("contact not found: "+id))
		}
		members = append(members, models.GroupMember{
			ContactID: contact.ID,
			Email:     contact.FriendEmail,
			Nickname:  contact.Nickname,
		})
	}
	members = append(members, models.GroupMember{
		Email:     middleware.GetEmail(ctx),
		IsCreator: true,
	})

	group := &models.ContactGroup{
		UserID:  userID,
		Name:    strings.TrimSpace(req.Msg.Name),
		Members: members,
	}
	if err := s.store.CreateContactGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID, "members", len(group.Members))

	return connect.NewResponse(groupPayload(group)), nil
}

// ListGroups returns the user's groups with members.
func (s *ContactService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	groups, err := s.store.ListContactGroups(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	payloads := make([]GroupPayload, len(groups))
	for i := range groups {
		payloads[i] = *groupPayload(&groups[i])
	}

	return connect.NewResponse(&ListGroupsResponse{Groups: payloads}), nil
}

// DeleteGroup removes a group.
func (s *ContactService) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[EmptyResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	if err := s.store.DeleteContactGroup(ctx, userID, req.Msg.GroupID); err != nil {
		slog.Warn("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	return connect.NewResponse(&EmptyResponse{}), nil
}

func contactPayload(c *models.Contact) *ContactPayload {
	return &ContactPayload{
		ID:          c.ID,
		Email:       c.FriendEmail,
		Nickname:    c.Nickname,
		DisplayName: c.DisplayName(),
		CreatedAt:   c.CreatedAt,
	}
}

func groupPayload(g *models.ContactGroup) *GroupPayload {
	members := make([]GroupMemberPayload, len(g.Members))
	for i, m := range g.Members {
		members[i] = GroupMemberPayload{
			ContactID:   m.ContactID,
			Email:       m.Email,
			Nickname:    m.Nickname,
			DisplayName: m.DisplayName(),
			IsCreator:   m.IsCreator,
		}
	}
	return &GroupPayload{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}
