package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

func TestClassifyProvider(t *testing.T) {
	cases := map[AudioProvider]ProviderBase{
		AudioOpenAIHD:          BaseOpenAI,
		AudioElevenLabsTurbo:   BaseElevenLabs,
		AudioElevenLabsQuality: BaseElevenLabs,
		AudioBrowserFree:       BaseFree,
		"azure_neural":         BaseFree,
		"":                     BaseFree,
	}
	for p, want := range cases {
		if got := ClassifyProvider(p); got != want {
			t.Fatalf("ClassifyProvider(%q): got %q want %q", p, got, want)
		}
	}
}

func TestFilteredIsIntersection(t *testing.T) {
	all := []Voice{
		{ID: "a", Nationality: project.NationalityBR, Base: BaseOpenAI},
		{ID: "b", Nationality: project.NationalityUS, Base: BaseOpenAI},
		{ID: "c", Nationality: project.NationalityBR, Base: BaseElevenLabs},
		{ID: "d", Nationality: project.NationalityBR, Base: BaseOpenAI},
		{ID: "e", Nationality: project.NationalityUS, Base: BaseFree},
	}
	c := NewCatalog(all)

	got := c.Filtered(project.NationalityBR, BaseOpenAI)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "d" {
		t.Fatalf("unexpected filter result: %+v", got)
	}

	// mutating the result must not leak into the catalog
	got[0].Name = "changed"
	if c.Len() != len(all) {
		t.Fatalf("catalog shrank: got %d want %d", c.Len(), len(all))
	}
	if v, _ := c.Lookup("a"); v.Name != "" {
		t.Fatalf("catalog mutated through filter result: %+v", v)
	}
	if len(c.Filtered(project.NationalityUS, BaseElevenLabs)) != 0 {
		t.Fatal("expected empty intersection")
	}
}

func TestPredefinedVoicesCoverEveryBase(t *testing.T) {
	c := NewCatalog(PredefinedVoices())
	for _, nat := range []project.Nationality{project.NationalityBR, project.NationalityUS} {
		for _, base := range []ProviderBase{BaseOpenAI, BaseElevenLabs, BaseFree} {
			if len(c.Filtered(nat, base)) == 0 {
				t.Fatalf("no predefined voices for %s/%s", nat, base)
			}
		}
	}
}

func TestElevenLabsDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Invalid API Key"}`))
			return
		}
		w.Write([]byte(`{"voices":[
			{"voice_id":"v1","name":"Ana","preview_url":"https://x/ana.mp3","labels":{"language":"pt","accent":"brazilian"}},
			{"voice_id":"v2","name":"Bill","preview_url":"https://x/bill.mp3","labels":{"accent":"american"}}
		]}`))
	}))
	defer srv.Close()

	d := NewElevenLabsDirectory("test-key")
	d.baseURL = srv.URL
	voices, err := d.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("voice count mismatch: got %d want 2", len(voices))
	}
	if voices[0].Nationality != project.NationalityBR || voices[1].Nationality != project.NationalityUS {
		t.Fatalf("nationality mapping wrong: %+v", voices)
	}
	if voices[0].Base != BaseElevenLabs || voices[0].PreviewURL == "" {
		t.Fatalf("unexpected voice: %+v", voices[0])
	}

	bad := NewElevenLabsDirectory("wrong")
	bad.baseURL = srv.URL
	if _, err := bad.ListVoices(context.Background()); err == nil {
		t.Fatal("expected error for rejected key")
	}
}

type failingDirectory struct{}

func (failingDirectory) ListVoices(context.Context) ([]Voice, error) {
	return nil, errors.New("directory down")
}

func TestMergedDirectory(t *testing.T) {
	a := StaticDirectory{{ID: "1"}, {ID: "2"}}
	b := StaticDirectory{{ID: "2"}, {ID: "3"}}

	voices, err := NewMergedDirectory(nil, failingDirectory{}, a, b).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 3 {
		t.Fatalf("expected 3 unique voices, got %+v", voices)
	}

	if _, err := NewMergedDirectory(nil, failingDirectory{}).ListVoices(context.Background()); err == nil {
		t.Fatal("expected error when every source fails")
	}
}
