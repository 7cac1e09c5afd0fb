package chatwoot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

type adapterFixture struct {
	adapter       *Adapter
	chatwootPaths *[]string
	whatsAppTypes *[]string
}

func newAdapterFixture(t *testing.T, withWhatsApp bool) adapterFixture {
	t.Helper()

	var paths []string
	cwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, `{"id": 1}`)
	}))
	t.Cleanup(cwSrv.Close)
	client := NewClient(cwSrv.URL, "", "17", "cw-token")

	var whatsapp *WhatsAppClient
	var types []string
	if withWhatsApp {
		waSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var msg map[string]any
			_ = json.NewDecoder(r.Body).Decode(&msg)
			types = append(types, msg["type"].(string))
			fmt.Fprint(w, `{}`)
		}))
		t.Cleanup(waSrv.Close)
		whatsapp = NewWhatsAppClient("", "wa-token", "5550001")
		whatsapp.SetGraphAPIBase(waSrv.URL)
	}

	return adapterFixture{
		adapter:       NewAdapter(client, whatsapp, logging.Default()),
		chatwootPaths: &paths,
		whatsAppTypes: &types,
	}
}

func testRef() dialog.ConversationRef {
	return dialog.ConversationRef{ConversationID: "42", PhoneNumber: "+5541999990000"}
}

func TestAdapter_TextGoesToChatwoot(t *testing.T) {
	f := newAdapterFixture(t, true)

	id, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityText,
		Text: "olá",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "1" {
		t.Fatalf("expected chatwoot message id, got %q", id)
	}
	if len(*f.chatwootPaths) != 1 {
		t.Fatalf("expected one chatwoot call, got %v", *f.chatwootPaths)
	}
}

func TestAdapter_ChoiceGoesToChatwoot(t *testing.T) {
	f := newAdapterFixture(t, true)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityChoice,
		Text: "Sim ou não?",
		Options: []dialog.ChoiceOption{
			{Title: "Sim", Value: "true"},
			{Title: "Não", Value: "false"},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(*f.chatwootPaths) != 1 {
		t.Fatalf("expected one chatwoot call, got %v", *f.chatwootPaths)
	}
}

func TestAdapter_LocationRequestPrefersWhatsApp(t *testing.T) {
	f := newAdapterFixture(t, true)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityLocationRequest,
		Text: "Compartilhe sua localização",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(*f.whatsAppTypes) != 1 || (*f.whatsAppTypes)[0] != "interactive" {
		t.Fatalf("expected one interactive whatsapp message, got %v", *f.whatsAppTypes)
	}
	if len(*f.chatwootPaths) != 0 {
		t.Fatalf("chatwoot must not be called, got %v", *f.chatwootPaths)
	}
}

func TestAdapter_LocationRequestFallsBackToText(t *testing.T) {
	f := newAdapterFixture(t, false)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityLocationRequest,
		Text: "Compartilhe sua localização",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(*f.chatwootPaths) != 1 {
		t.Fatalf("expected a plain text fallback, got %v", *f.chatwootPaths)
	}
}

func TestAdapter_HandoffOpensConversation(t *testing.T) {
	f := newAdapterFixture(t, true)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityHandoff,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	paths := *f.chatwootPaths
	if len(paths) != 1 || paths[0] != "/api/v1/accounts/17/conversations/42/toggle_status" {
		t.Fatalf("expected a toggle_status call, got %v", paths)
	}
}

func TestAdapter_LocationWithoutCoordinatesFails(t *testing.T) {
	f := newAdapterFixture(t, true)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityLocation,
	})
	if err == nil {
		t.Fatal("expected an error for a location activity without coordinates")
	}
}

func TestAdapter_UnknownKindFails(t *testing.T) {
	f := newAdapterFixture(t, true)

	_, err := f.adapter.Send(context.Background(), testRef(), dialog.OutboundActivity{
		Kind: dialog.ActivityKind("carousel"),
	})
	if err == nil {
		t.Fatal("expected an error for an unsupported activity kind")
	}
}
