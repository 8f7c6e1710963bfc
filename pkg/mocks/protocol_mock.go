// Package mocks provides testify mock implementations of the collaborator
// contracts in pkg/protocol.
package mocks

import (
	"context"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEntitlementChecker is a mock implementation of protocol.EntitlementChecker.
type MockEntitlementChecker struct {
	mock.Mock
}

func (m *MockEntitlementChecker) HasEntitlement(ctx context.Context, userID, capability string) (bool, error) {
	args := m.Called(ctx, userID, capability)

	return args.Bool(0), args.Error(1)
}

// MockDirectory is a mock implementation of protocol.Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)

	user, _ := args.Get(0).(*models.User)

	return user, args.Error(1)
}

func (m *MockDirectory) ContactByID(ctx context.Context, contactID, scopeUserID string) (*models.Contact, error) {
	args := m.Called(ctx, contactID, scopeUserID)

	contact, _ := args.Get(0).(*models.Contact)

	return contact, args.Error(1)
}

func (m *MockDirectory) ListingByID(ctx context.Context, listingID, scopeUserID string) (*models.Listing, error) {
	args := m.Called(ctx, listingID, scopeUserID)

	listing, _ := args.Get(0).(*models.Listing)

	return listing, args.Error(1)
}

func (m *MockDirectory) WorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	args := m.Called(ctx, workspaceID, userID)

	return args.Bool(0), args.Error(1)
}

// MockSMSSender is a mock implementation of protocol.SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, toPhone, body string) error {
	args := m.Called(ctx, toPhone, body)

	return args.Error(0)
}

// MockEmailSender is a mock implementation of protocol.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, toEmail, subject, html string) error {
	args := m.Called(ctx, toEmail, subject, html)

	return args.Error(0)
}

// MockTaskCreator is a mock implementation of protocol.TaskCreator.
type MockTaskCreator struct {
	mock.Mock
}

func (m *MockTaskCreator) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	args := m.Called(ctx, req)

	task, _ := args.Get(0).(*models.Task)

	return task, args.Error(1)
}
