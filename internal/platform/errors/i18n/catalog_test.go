package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if GetCatalog("") != base {
		t.Fatal("expected empty locale to resolve to en-US catalog")
	}
}

func TestGetCatalogMatchesRegionlessLocale(t *testing.T) {
	if got := GetCatalog("pt").Locale(); got != "pt-BR" {
		t.Fatalf("locale = %q, want %q", got, "pt-BR")
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "en-US"},
		{header: "pt-BR,pt;q=0.9,en;q=0.8", want: "pt-BR"},
		{header: "en-GB,en;q=0.9", want: "en-US"},
		{header: "ja-JP", want: "en-US"},
		{header: ";;;", want: "en-US"},
	}
	for _, tc := range tests {
		if got := Negotiate(tc.header); got != tc.want {
			t.Fatalf("Negotiate(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestCatalogsCoverTheSameCodes(t *testing.T) {
	for code := range enUSCatalog.messages {
		if _, ok := ptBRCatalog.messages[code]; !ok {
			t.Fatalf("pt-BR catalog missing %s", code)
		}
	}
	if len(ptBRCatalog.messages) != len(enUSCatalog.messages) {
		t.Fatalf("pt-BR has %d messages, want %d", len(ptBRCatalog.messages), len(enUSCatalog.messages))
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestFormatTemplateExecutionErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ call .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ call .Name }}" {
		t.Fatal("expected template fallback on execute error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
