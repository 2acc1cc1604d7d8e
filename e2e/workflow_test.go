package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"loomworks/internal/activity"
	jwttoken "loomworks/internal/jwt_token"
	"loomworks/internal/reporting"
	reportinghandler "loomworks/internal/reporting/handler"
	transporthttp "loomworks/internal/transport/http"
	"loomworks/internal/user"
	userhandler "loomworks/internal/user/handler"
	"loomworks/internal/workflow"
	workflowhandler "loomworks/internal/workflow/handler"
	"loomworks/pkg/requestcontext"
)

const (
	adminEmail    = "admin@loomworks.example"
	adminPassword = "bootstrap-admin-pw"
	managerPass   = "manager-password"
)

// testWorld is one scenario's state: a freshly wired in-process server plus
// the credentials and IDs accumulated by the steps.
type testWorld struct {
	server *httptest.Server

	adminToken   string
	managerToken string
	managerEmail string

	employeeID     uuid.UUID
	submissionID   uuid.UUID
	lastStatusCode int
}

func newTestWorld() (*testWorld, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	entityStore := workflow.NewInMemoryEntityStore()
	submissionStore := workflow.NewInMemorySubmissionStore()
	approvalStore := workflow.NewInMemoryApprovalStore()
	activityStore := activity.NewInMemoryStore()
	userStore := user.NewInMemoryStore()

	publisher := activity.NewPublisher(activityStore, logger)
	tokens := jwttoken.NewService("e2e-signing-key", "loomworks")
	users := user.NewService(userStore, tokens, publisher, logger)
	if err := users.Seed(context.Background(), adminEmail, adminPassword); err != nil {
		return nil, err
	}

	engine := workflow.NewEngine(entityStore, submissionStore, approvalStore,
		publisher, nil, nil, logger)
	reports := reporting.NewService(entityStore, submissionStore, activityStore,
		nil, "98.5", logger)

	router := transporthttp.NewRouter(nil,
		userhandler.New(users, publisher, logger, nil, tokens),
		reportinghandler.New(reports, logger, nil, tokens),
		workflowhandler.New(engine, logger, nil, tokens),
	)

	return &testWorld{server: httptest.NewServer(router)}, nil
}

func (w *testWorld) close() {
	if w.server != nil {
		w.server.Close()
	}
}

func (w *testWorld) request(method, path, token string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, w.server.URL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	w.lastStatusCode = resp.StatusCode
	return resp, raw, nil
}

func (w *testWorld) login(email, password string) (string, error) {
	_, raw, err := w.request(http.MethodPost, "/auth/login", "",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	if w.lastStatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", w.lastStatusCode, raw)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Step definitions.

func (w *testWorld) aSeededAdminAccount() error {
	token, err := w.login(adminEmail, adminPassword)
	if err != nil {
		return err
	}
	w.adminToken = token
	return nil
}

func (w *testWorld) aManagerAccount(email string) error {
	_, raw, err := w.request(http.MethodPost, "/admin/users", w.adminToken, map[string]string{
		"email":    email,
		"fullName": "E2E Manager",
		"password": managerPass,
		"role":     string(requestcontext.RoleManager),
	})
	if err != nil {
		return err
	}
	if w.lastStatusCode != http.StatusCreated {
		return fmt.Errorf("create manager failed with status %d: %s", w.lastStatusCode, raw)
	}
	w.managerEmail = email
	w.managerToken, err = w.login(email, managerPass)
	return err
}

func (w *testWorld) createEmployee(code string, submit bool) error {
	_, raw, err := w.request(http.MethodPost, "/employee", w.managerToken, map[string]any{
		"employeeId": code,
		"fullName":   "Test Employee",
		"department": "Sewing",
		"submit":     submit,
	})
	if err != nil {
		return err
	}
	if w.lastStatusCode != http.StatusCreated {
		return fmt.Errorf("create employee failed with status %d: %s", w.lastStatusCode, raw)
	}
	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	w.employeeID = resp.ID
	return nil
}

func (w *testWorld) theManagerCreatesADraftEmployee(code string) error {
	return w.createEmployee(code, false)
}

func (w *testWorld) theManagerCreatesASubmittedEmployee(code string) error {
	return w.createEmployee(code, true)
}

func (w *testWorld) theEmployeeStatusIs(want string) error {
	_, raw, err := w.request(http.MethodGet, "/employee/"+w.employeeID.String(), w.managerToken, nil)
	if err != nil {
		return err
	}
	var resp struct {
		Status string `json:"submissionStatus"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	if resp.Status != want {
		return fmt.Errorf("expected status %q, got %q", want, resp.Status)
	}
	return nil
}

func (w *testWorld) theRejectionReasonIs(want string) error {
	_, raw, err := w.request(http.MethodGet, "/employee/"+w.employeeID.String(), w.managerToken, nil)
	if err != nil {
		return err
	}
	var resp struct {
		Verification *struct {
			RejectionReason string `json:"rejectionReason"`
		} `json:"verificationMetadata"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	got := ""
	if resp.Verification != nil {
		got = resp.Verification.RejectionReason
	}
	if got != want {
		return fmt.Errorf("expected rejection reason %q, got %q", want, got)
	}
	return nil
}

func (w *testWorld) theAdminSeesPendingApprovals(count int) error {
	_, raw, err := w.request(http.MethodGet, "/approvals", w.adminToken, nil)
	if err != nil {
		return err
	}
	if w.lastStatusCode != http.StatusOK {
		return fmt.Errorf("list approvals failed with status %d", w.lastStatusCode)
	}
	var pending []struct {
		ID       uuid.UUID `json:"id"`
		EntityID uuid.UUID `json:"entityId"`
	}
	if err := json.Unmarshal(raw, &pending); err != nil {
		return err
	}
	if len(pending) != count {
		return fmt.Errorf("expected %d pending approvals, got %d", count, len(pending))
	}
	for _, sub := range pending {
		if sub.EntityID == w.employeeID {
			w.submissionID = sub.ID
		}
	}
	return nil
}

func (w *testWorld) theAdminDecides(action, comment string) error {
	if w.submissionID == uuid.Nil {
		if err := w.theAdminSeesPendingApprovals(1); err != nil {
			return err
		}
	}
	_, raw, err := w.request(http.MethodPost, "/approvals/"+w.submissionID.String(), w.adminToken,
		map[string]string{"action": action, "comments": comment})
	if err != nil {
		return err
	}
	if w.lastStatusCode != http.StatusOK {
		return fmt.Errorf("decide failed with status %d: %s", w.lastStatusCode, raw)
	}
	// The next decision targets a fresh submission.
	w.submissionID = uuid.Nil
	return nil
}

func (w *testWorld) theManagerResubmitsTheEmployee() error {
	_, raw, err := w.request(http.MethodPut, "/employee/"+w.employeeID.String(), w.managerToken,
		map[string]any{
			"employeeId": "RESUBMITTED",
			"fullName":   "Test Employee",
			"department": "Sewing",
			"joinedOn":   "2026-01-15",
			"submit":     true,
		})
	if err != nil {
		return err
	}
	if w.lastStatusCode != http.StatusOK {
		return fmt.Errorf("resubmit failed with status %d: %s", w.lastStatusCode, raw)
	}
	return nil
}

func (w *testWorld) theManagerTriesToEditTheEmployee() error {
	_, _, err := w.request(http.MethodPut, "/employee/"+w.employeeID.String(), w.managerToken,
		map[string]any{
			"employeeId": "EDITED",
			"fullName":   "Test Employee",
			"department": "Sewing",
		})
	return err
}

func (w *testWorld) theManagerRequestsThePendingApprovalsList() error {
	_, _, err := w.request(http.MethodGet, "/approvals", w.managerToken, nil)
	return err
}

func (w *testWorld) theRequestFailsWithStatus(code int) error {
	if w.lastStatusCode != code {
		return fmt.Errorf("expected status %d, got %d", code, w.lastStatusCode)
	}
	return nil
}

func InitializeScenario(sc *godog.ScenarioContext) {
	var world *testWorld

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		var err error
		world, err = newTestWorld()
		return ctx, err
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		world.close()
		return ctx, nil
	})

	sc.Step(`^a seeded admin account$`, func() error { return world.aSeededAdminAccount() })
	sc.Step(`^a manager account "([^"]*)"$`, func(email string) error { return world.aManagerAccount(email) })
	sc.Step(`^the manager creates a draft employee "([^"]*)"$`, func(code string) error {
		return world.theManagerCreatesADraftEmployee(code)
	})
	sc.Step(`^the manager creates a submitted employee "([^"]*)"$`, func(code string) error {
		return world.theManagerCreatesASubmittedEmployee(code)
	})
	sc.Step(`^the employee status is "([^"]*)"$`, func(status string) error {
		return world.theEmployeeStatusIs(status)
	})
	sc.Step(`^the rejection reason is "([^"]*)"$`, func(reason string) error {
		return world.theRejectionReasonIs(reason)
	})
	sc.Step(`^the admin sees (\d+) pending approvals?$`, func(count int) error {
		return world.theAdminSeesPendingApprovals(count)
	})
	sc.Step(`^the admin decides "([^"]*)" with comment "([^"]*)"$`, func(action, comment string) error {
		return world.theAdminDecides(action, comment)
	})
	sc.Step(`^the manager resubmits the employee$`, func() error { return world.theManagerResubmitsTheEmployee() })
	sc.Step(`^the manager tries to edit the employee$`, func() error { return world.theManagerTriesToEditTheEmployee() })
	sc.Step(`^the edit fails with status (\d+)$`, func(code int) error { return world.theRequestFailsWithStatus(code) })
	sc.Step(`^the manager requests the pending approvals list$`, func() error {
		return world.theManagerRequestsThePendingApprovalsList()
	})
	sc.Step(`^the request fails with status (\d+)$`, func(code int) error { return world.theRequestFailsWithStatus(code) })
}

func TestWorkflowFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("one or more scenarios failed")
	}
}
