package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/pkg/events"
	"github.com/jcmexdev/storefront/internal/pkg/validate"
)

type stubSubmitter struct {
	mu      sync.Mutex
	result  basket.OrderResult
	err     error
	calls   int
	block   chan struct{} // when set, SubmitOrder waits until closed
	started chan struct{} // signalled once SubmitOrder has been entered
}

func (s *stubSubmitter) SubmitOrder(context.Context, basket.OrderRequest) (basket.OrderResult, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	started := s.started
	s.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	bus    *events.Bus
	sub    *stubSubmitter
	basket *basket.Store
	flow   *Flow
}

func newFixture() *fixture {
	bus := events.NewBus(discardLogger())
	sub := &stubSubmitter{result: basket.OrderResult{ID: "o1", Total: 350}}
	store := basket.NewStore(bus, sub, discardLogger())
	return &fixture{
		bus:    bus,
		sub:    sub,
		basket: store,
		flow:   NewFlow("session-1", store, nil, discardLogger()),
	}
}

func (f *fixture) givenFilledBasket() *fixture {
	f.basket.Add(catalog.Product{ID: "a", Title: "Бэн-бан", Price: 100})
	f.basket.Add(catalog.Product{ID: "b", Title: "Фреймворк куки судьбы", Price: 250})
	return f
}

func (f *fixture) givenShippingPayment(t *testing.T) *fixture {
	t.Helper()
	if err := f.flow.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return f
}

func (f *fixture) givenValidShipping() *fixture {
	f.basket.SetOrderField(basket.FieldAddress, "Lenina 5")
	f.basket.SetOrderField(basket.FieldPayment, "online")
	return f
}

func (f *fixture) givenContact(t *testing.T) *fixture {
	t.Helper()
	f.givenValidShipping()
	if err := f.flow.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	return f
}

func (f *fixture) givenValidContacts() *fixture {
	f.basket.SetOrderField(basket.FieldEmail, "user@example.com")
	f.basket.SetOrderField(basket.FieldPhone, "+79991234567")
	return f
}

func TestOpenRefusedWithEmptyBasket(t *testing.T) {
	f := newFixture()

	err := f.flow.Open(context.Background())
	if !errors.Is(err, ErrEmptyBasket) {
		t.Fatalf("Open = %v, want ErrEmptyBasket", err)
	}
	if got := f.flow.State(); got != StateBasket {
		t.Errorf("state = %q, want basket", got)
	}
}

func TestOpenWithItemsEntersShippingPayment(t *testing.T) {
	f := newFixture().givenFilledBasket()

	if err := f.flow.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := f.flow.State(); got != StateShippingPayment {
		t.Errorf("state = %q, want shipping_payment", got)
	}
}

func TestOpenResetsDraftFromPreviousSession(t *testing.T) {
	f := newFixture().givenFilledBasket()
	f.basket.SetOrderField(basket.FieldAddress, "stale address")

	if err := f.flow.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := f.basket.OrderData(); got != (basket.OrderDraft{}) {
		t.Errorf("draft = %+v, want empty", got)
	}
}

func TestShippingPaymentGating(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		payment    string
		canProceed bool
		reasons    []string
	}{
		{
			name:    "nothing entered",
			reasons: []string{validate.MsgAddressRequired, validate.MsgPaymentRequired},
		},
		{
			name:    "short address, payment chosen",
			address: "ab",
			payment: "online",
			reasons: []string{validate.MsgAddressTooShort},
		},
		{
			name:    "valid address, no payment",
			address: "Lenina 5",
			reasons: []string{validate.MsgPaymentRequired},
		},
		{
			name:       "both valid",
			address:    "Lenina 5",
			payment:    "offline",
			canProceed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture().givenFilledBasket().givenShippingPayment(t)
			if tt.address != "" {
				f.basket.SetOrderField(basket.FieldAddress, tt.address)
			}
			if tt.payment != "" {
				f.basket.SetOrderField(basket.FieldPayment, tt.payment)
			}

			if got := f.flow.CanProceed(); got != tt.canProceed {
				t.Errorf("CanProceed = %v, want %v", got, tt.canProceed)
			}
			got := f.flow.Errors()
			if len(got) != len(tt.reasons) {
				t.Fatalf("Errors = %v, want %v", got, tt.reasons)
			}
			for i := range got {
				if got[i] != tt.reasons[i] {
					t.Errorf("Errors[%d] = %q, want %q", i, got[i], tt.reasons[i])
				}
			}
		})
	}
}

func TestCanProceedTogglesWithEveryFieldChange(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenValidShipping()

	if !f.flow.CanProceed() {
		t.Fatal("CanProceed = false with valid fields")
	}

	// A keystroke that breaks the address disables the control at once.
	f.basket.SetOrderField(basket.FieldAddress, "ab")
	if f.flow.CanProceed() {
		t.Fatal("CanProceed = true after field became invalid")
	}

	// And fixing it re-enables.
	f.basket.SetOrderField(basket.FieldAddress, "Lenina 5")
	if !f.flow.CanProceed() {
		t.Fatal("CanProceed = false after field became valid again")
	}
}

func TestNextBlockedUntilShippingValid(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t)

	if err := f.flow.Next(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Next = %v, want ErrNotReady", err)
	}
	if got := f.flow.State(); got != StateShippingPayment {
		t.Errorf("state = %q, want shipping_payment", got)
	}

	f.givenValidShipping()
	if err := f.flow.Next(context.Background()); err != nil {
		t.Fatalf("Next after valid fields: %v", err)
	}
	if got := f.flow.State(); got != StateContact {
		t.Errorf("state = %q, want contact", got)
	}
}

func TestContactGatingIsStrict(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t)

	got := f.flow.Errors()
	want := []string{validate.MsgEmailRequired, validate.MsgPhoneRequired}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Errors = %v, want %v", got, want)
	}

	f.givenValidContacts()
	if len(f.flow.Errors()) != 0 {
		t.Errorf("Errors = %v after valid contacts", f.flow.Errors())
	}
	if !f.flow.CanProceed() {
		t.Error("CanProceed = false with valid contacts")
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()

	var completed []basket.OrderResult
	f.bus.On(basket.EventOrderCompleted, func(p any) {
		completed = append(completed, p.(basket.OrderResult))
	})

	res, err := f.flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res != (basket.OrderResult{ID: "o1", Total: 350}) {
		t.Errorf("result = %+v", res)
	}
	if got := f.flow.State(); got != StateSuccess {
		t.Errorf("state = %q, want success", got)
	}
	if f.basket.Len() != 0 {
		t.Error("basket not empty after success")
	}
	if len(completed) != 1 || completed[0].ID != "o1" || completed[0].Total != 350 {
		t.Errorf("order:completed = %+v, want exactly one {o1 350}", completed)
	}
}

func TestSubmitRefusedWithInvalidFields(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t)
	f.basket.SetOrderField(basket.FieldEmail, "not-an-email")
	f.basket.SetOrderField(basket.FieldPhone, "+79991234567")

	_, err := f.flow.Submit(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Submit = %v, want ErrNotReady", err)
	}
	if f.sub.callCount() != 0 {
		t.Error("collaborator called despite failing validation gate")
	}
	if got := f.flow.State(); got != StateContact {
		t.Errorf("state = %q, want contact", got)
	}
}

func TestSubmitFailureEntersFailedAndKeepsBasket(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()
	f.sub.err = errors.New("502 bad gateway")

	_, err := f.flow.Submit(context.Background())
	if !errors.Is(err, basket.ErrSubmitFailed) {
		t.Fatalf("Submit = %v, want ErrSubmitFailed", err)
	}

	if got := f.flow.State(); got != StateFailed {
		t.Errorf("state = %q, want failed", got)
	}
	if f.basket.Len() != 2 {
		t.Error("basket mutated on failed submission")
	}
	if got := f.flow.Errors(); len(got) != 1 || got[0] != MsgSubmitFailed {
		t.Errorf("Errors = %v, want [%q]", got, MsgSubmitFailed)
	}
}

func TestRetryFromFailedSucceeds(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()
	f.sub.err = errors.New("temporary outage")

	if _, err := f.flow.Submit(context.Background()); err == nil {
		t.Fatal("first Submit succeeded, want failure")
	}

	f.sub.err = nil
	res, err := f.flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if res.ID != "o1" {
		t.Errorf("result = %+v", res)
	}
	if got := f.flow.State(); got != StateSuccess {
		t.Errorf("state = %q, want success", got)
	}
	if f.sub.callCount() != 2 {
		t.Errorf("collaborator called %d times, want 2", f.sub.callCount())
	}
}

func TestReentrantSubmitIsIgnored(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()
	f.sub.block = make(chan struct{})
	f.sub.started = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.flow.Submit(context.Background())
	}()

	<-f.sub.started
	if got := f.flow.State(); got != StateSubmitting {
		t.Errorf("state = %q during submission, want submitting", got)
	}

	_, err := f.flow.Submit(context.Background())
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("re-entrant Submit = %v, want ErrSubmitInFlight", err)
	}
	if err := f.flow.Cancel(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("Cancel during submission = %v, want ErrSubmitInFlight", err)
	}

	close(f.sub.block)
	<-done

	if f.sub.callCount() != 1 {
		t.Errorf("collaborator called %d times, want 1", f.sub.callCount())
	}
	if got := f.flow.State(); got != StateSuccess {
		t.Errorf("state = %q after resolution, want success", got)
	}
}

func TestCancelReturnsToBasketAndDiscardsDraft(t *testing.T) {
	for _, from := range []string{"shipping_payment", "contact"} {
		t.Run(from, func(t *testing.T) {
			f := newFixture().givenFilledBasket().givenShippingPayment(t)
			if from == "contact" {
				f.givenContact(t)
			}
			f.basket.SetOrderField(basket.FieldAddress, "Lenina 5")

			if err := f.flow.Cancel(context.Background()); err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			if got := f.flow.State(); got != StateBasket {
				t.Errorf("state = %q, want basket", got)
			}
			if f.basket.OrderData() != (basket.OrderDraft{}) {
				t.Error("draft survived cancel")
			}
			if f.basket.Len() != 2 {
				t.Error("cancel must keep basket lines")
			}
		})
	}
}

func TestCloseAfterSuccessStartsFreshSession(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()
	if _, err := f.flow.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := f.flow.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := f.flow.State(); got != StateBasket {
		t.Errorf("state = %q, want basket", got)
	}

	// The fresh session starts from an empty basket: opening checkout
	// is refused again until something is added.
	if err := f.flow.Open(context.Background()); !errors.Is(err, ErrEmptyBasket) {
		t.Errorf("Open after close = %v, want ErrEmptyBasket", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		op   func(*fixture) error
	}{
		{"Next from basket", func(f *fixture) error { return f.flow.Next(context.Background()) }},
		{"Close from basket", func(f *fixture) error { return f.flow.Close(context.Background()) }},
		{"Cancel from basket", func(f *fixture) error { return f.flow.Cancel(context.Background()) }},
		{"Submit from basket", func(f *fixture) error {
			_, err := f.flow.Submit(context.Background())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture().givenFilledBasket()
			if err := tt.op(f); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s = %v, want ErrInvalidTransition", tt.name, err)
			}
			if got := f.flow.State(); got != StateBasket {
				t.Errorf("state = %q, want basket", got)
			}
		})
	}
}

func TestResultAvailableUntilClose(t *testing.T) {
	f := newFixture().givenFilledBasket().givenShippingPayment(t).givenContact(t).givenValidContacts()
	if _, err := f.flow.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, ok := f.flow.Result()
	if !ok || res.ID != "o1" || res.Total != 350 {
		t.Fatalf("Result = %+v, %v", res, ok)
	}

	if err := f.flow.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := f.flow.Result(); ok {
		t.Error("Result survived Close")
	}
}

func TestDescribeJoinsReasonsPerLine(t *testing.T) {
	got := Describe([]string{validate.MsgEmailRequired, validate.MsgPhoneRequired})
	want := validate.MsgEmailRequired + "\n" + validate.MsgPhoneRequired
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}
