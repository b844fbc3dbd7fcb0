package requestservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend/sqlstore"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/taxonomy"
	"github.com/starford/vouch/internal/testutil"
)

type recordedEvent struct {
	kind string
	data map[string]string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishRequestEvent(kind string, data map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: kind, data: data})
}

type testEnv struct {
	svc    *Service
	db     *sqlstore.Store
	tax    *taxonomy.Store
	events *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SeededStore(t)
	tax := taxonomy.NewStore(db)
	events := &recordingPublisher{}
	svc := NewService(db, tax,
		taxonomy.NewAreaCreator(db, tax, nil),
		taxonomy.NewSubcategoryCreator(db, tax, nil),
		WithPublisher(events),
		WithPublicURL("https://vouch.app/"),
	)
	return &testEnv{svc: svc, db: db, tax: tax, events: events}
}

func TestCreateRequest_ByIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.svc.CreateRequest(ctx, CreateRequestInput{
		LocationID:     testutil.Hackney,
		BusinessTypeID: testutil.Plumber,
		Context:        "  Leaky tap  ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.Title != "Looking for Plumber in Hackney" {
		t.Errorf("title = %q", req.Title)
	}
	if req.Context != "Leaky tap" || req.Status != models.StatusOpen || !req.IsPublic {
		t.Errorf("request = %+v", req)
	}
	if req.CategoryID == nil || *req.CategoryID != testutil.Home || req.SubcategoryID == nil || *req.SubcategoryID != testutil.Plumber {
		t.Errorf("category/subcategory = %v/%v", req.CategoryID, req.SubcategoryID)
	}
	if len(req.ShareToken) != 12 || strings.Trim(req.ShareToken, "0123456789abcdef") != "" {
		t.Errorf("share token = %q", req.ShareToken)
	}
	if len(env.events.events) != 1 || env.events.events[0].kind != EventRequestCreated {
		t.Errorf("events = %+v", env.events.events)
	}
}

func TestCreateRequest_CategoryOnly(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.svc.CreateRequest(context.Background(), CreateRequestInput{
		LocationID:     testutil.Leeds,
		BusinessTypeID: testutil.FoodDrink,
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.SubcategoryID != nil || req.CategoryID == nil || *req.CategoryID != testutil.FoodDrink {
		t.Errorf("ids = %v/%v", req.CategoryID, req.SubcategoryID)
	}
	if req.Title != "Looking for Food & Drink in Leeds" {
		t.Errorf("title = %q", req.Title)
	}
}

func TestCreateRequest_FreeTextReusesExactMatch(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.svc.CreateRequest(context.Background(), CreateRequestInput{
		LocationName:     "shoreditch",
		BusinessTypeName: "RESTAURANT",
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.AreaID != testutil.Shoreditch || *req.SubcategoryID != testutil.Restaurant || *req.CategoryID != testutil.FoodDrink {
		t.Errorf("request = %+v", req)
	}
	if req.Title != "Looking for Restaurant in Shoreditch" {
		t.Errorf("title = %q", req.Title)
	}
}

func TestCreateRequest_FreeTextCreatesItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Warm the cache so the creator's invalidation is observable.
	if _, err := env.tax.Locations(ctx); err != nil {
		t.Fatal(err)
	}

	req, err := env.svc.CreateRequest(ctx, CreateRequestInput{
		LocationName:     "Peckham",
		BusinessTypeName: "Tattoo Artist",
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.CategoryID != nil || req.SubcategoryID == nil {
		t.Errorf("ids = %v/%v", req.CategoryID, req.SubcategoryID)
	}
	if req.Title != "Looking for Tattoo Artist in Peckham" {
		t.Errorf("title = %q", req.Title)
	}

	view, err := env.tax.Locations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var created *models.HierarchyItem
	for i := range view.Items {
		if view.Items[i].ID == req.AreaID {
			created = &view.Items[i]
		}
	}
	if created == nil || !created.UserGenerated() {
		t.Fatalf("new area missing from refreshed taxonomy: %+v", created)
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateRequest(ctx, CreateRequestInput{})
	var verr validation.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation errors", err)
	}
	if _, ok := verr["location_name"]; !ok {
		t.Errorf("missing location error: %v", verr)
	}
	if _, ok := verr["business_type_name"]; !ok {
		t.Errorf("missing business type error: %v", verr)
	}

	_, err = env.svc.CreateRequest(ctx, CreateRequestInput{LocationID: "nowhere", BusinessTypeID: testutil.Plumber})
	if !errors.As(err, &verr) || verr["location_id"] == nil {
		t.Errorf("unknown location err = %v", err)
	}
	_, err = env.svc.CreateRequest(ctx, CreateRequestInput{LocationID: testutil.Leeds, BusinessTypeID: "nothing"})
	if !errors.As(err, &verr) || verr["business_type_id"] == nil {
		t.Errorf("unknown business type err = %v", err)
	}
}

func TestListRequests_LocationIncludesDescendants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mk := func(loc, bt string) string {
		t.Helper()
		req, err := env.svc.CreateRequest(ctx, CreateRequestInput{LocationID: loc, BusinessTypeID: bt})
		if err != nil {
			t.Fatal(err)
		}
		return req.ShareToken
	}
	inShoreditch := mk(testutil.Shoreditch, testutil.Plumber)
	inLeeds := mk(testutil.Leeds, testutil.Restaurant)
	inLondon := mk(testutil.London, testutil.Home)

	tokens := func(items []models.FeedItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.ShareToken)
		}
		return out
	}

	got, err := env.svc.ListRequests(ctx, Filter{LocationID: testutil.London})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{inLondon, inShoreditch}, tokens(got)); diff != "" {
		t.Errorf("london (-want +got):\n%s", diff)
	}

	got, _ = env.svc.ListRequests(ctx, Filter{LocationID: testutil.Hackney})
	if diff := cmp.Diff([]string{inShoreditch}, tokens(got)); diff != "" {
		t.Errorf("hackney (-want +got):\n%s", diff)
	}

	got, _ = env.svc.ListRequests(ctx, Filter{BusinessType: testutil.Home})
	if diff := cmp.Diff([]string{inLondon, inShoreditch}, tokens(got)); diff != "" {
		t.Errorf("home (-want +got):\n%s", diff)
	}

	got, _ = env.svc.ListRequests(ctx, Filter{Search: "restaurant"})
	if diff := cmp.Diff([]string{inLeeds}, tokens(got)); diff != "" {
		t.Errorf("search (-want +got):\n%s", diff)
	}

	got, _ = env.svc.ListRequests(ctx, Filter{LocationID: testutil.Leeds, BusinessType: testutil.Home})
	if got == nil || len(got) != 0 {
		t.Errorf("empty result = %#v, want empty slice", got)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 50, -3: 50, 10: 10, 200: 200, 5000: 200} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGetRequest_AndResponses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.GetRequest(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	req, err := env.svc.CreateRequest(ctx, CreateRequestInput{LocationID: testutil.Hackney, BusinessTypeID: testutil.Plumber})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := env.svc.CreateResponse(ctx, req.ShareToken, ResponseInput{
		BusinessName: " Acme Plumbing ",
		Instagram:    "@acmeplumbing",
		Website:      "acme.example.com",
		Email:        "hello@acme.example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.BusinessName != "Acme Plumbing" || resp.Instagram != "acmeplumbing" || resp.Website != "https://acme.example.com" {
		t.Errorf("normalised response = %+v", resp)
	}

	detail, err := env.svc.GetRequest(ctx, req.ShareToken)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Request.ResponseCount != 1 || len(detail.Responses) != 1 {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Request.LocationName != "Hackney" || detail.Request.RequesterName != "Anonymous" {
		t.Errorf("feed fields = %+v", detail.Request)
	}

	last := env.events.events[len(env.events.events)-1]
	if last.kind != EventResponseCreated || last.data["share_token"] != req.ShareToken {
		t.Errorf("last event = %+v", last)
	}
}

func TestCreateResponse_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req, _ := env.svc.CreateRequest(ctx, CreateRequestInput{LocationID: testutil.Leeds, BusinessTypeID: testutil.Home})

	_, err := env.svc.CreateResponse(ctx, req.ShareToken, ResponseInput{BusinessName: "  ", Email: "not-an-email"})
	var verr validation.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
	if verr["business_name"] == nil || verr["email"] == nil {
		t.Errorf("errors = %v", verr)
	}

	_, err = env.svc.CreateResponse(ctx, "missing", ResponseInput{BusinessName: "Acme"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing request err = %v", err)
	}
}

func TestFormatURL(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"acme.com":           "https://acme.com",
		"http://acme.com":    "http://acme.com",
		"HTTPS://acme.com/x": "HTTPS://acme.com/x",
	}
	for in, want := range cases {
		if got := formatURL(in); got != want {
			t.Errorf("formatURL(%q) = %q, want %q", in, got, want)
		}
	}
}
