package resgen

import (
	"errors"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     ResourceID
	}{
		{
			name:     "collection",
			template: "/widgets",
			want:     "/widgets",
		},
		{
			name:     "instance",
			template: "/widgets/{name}",
			want:     "/widgets/{}",
		},
		{
			name:     "arm path",
			template: "/subscriptions/{subscriptionId}/resourceGroups/{resourceGroupName}/providers/Microsoft.EdgeOrder/addresses/{addressName}",
			want:     "/subscriptions/{}/resourcegroups/{}/providers/microsoft.edgeorder/addresses/{}",
		},
		{
			name:     "leading scope parameter",
			template: "/{resourceUri}/providers/Microsoft.Insights/diagnosticSettings/{name}",
			want:     "/{}/providers/microsoft.insights/diagnosticsettings/{}",
		},
		{
			name:     "parameter embedded in segment",
			template: "/files('{fileId}')/content",
			want:     "/files('{}')/content",
		},
		{
			name:     "two parameters in one segment",
			template: "/ranges/{start}-{end}",
			want:     "/ranges/{}-{}",
		},
		{
			name:     "query discriminator",
			template: "/widgets/{name}?Action=Restart",
			want:     "/widgets/{}?action=restart",
		},
		{
			name:     "empty query",
			template: "/widgets/{name}?",
			want:     "/widgets/{}",
		},
		{
			name:     "trailing slash",
			template: "/widgets/",
			want:     "/widgets",
		},
		{
			name:     "missing leading slash",
			template: "widgets/{name}",
			want:     "/widgets/{}",
		},
		{
			name:     "root",
			template: "/",
			want:     RootResourceID,
		},
		{
			name:     "empty",
			template: "",
			want:     RootResourceID,
		},
		{
			name:     "already canonical",
			template: "/widgets/{}",
			want:     "/widgets/{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.template)
			if err != nil {
				t.Fatalf("Canonicalize(%q) error = %v", tt.template, err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Malformed(t *testing.T) {
	tests := []string{
		"/{name}",
		"/{scope}/{name}",
		"{name}",
		"/widgets//{name}",
		"/widgets/{name",
		"/widgets/name}",
		"/widgets/{a{b}}",
		"/?op=list",
	}

	for _, template := range tests {
		t.Run(template, func(t *testing.T) {
			id, err := Canonicalize(template)
			if err == nil {
				t.Fatalf("Canonicalize(%q) = %q, want error", template, id)
			}
			if !errors.Is(err, ErrMalformedPath) {
				t.Errorf("error = %v, want ErrMalformedPath", err)
			}
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}
		})
	}
}

func TestCanonicalize_ParameterNamesDoNotMatter(t *testing.T) {
	pairs := [][2]string{
		{"/widgets/{name}", "/widgets/{widgetName}"},
		{"/a/{x}/b/{y}", "/a/{first}/b/{second}"},
		{"/{scope}/providers/X/y/{n}", "/{resourceUri}/providers/X/y/{yName}"},
		{"/files('{id}')", "/files('{fileId}')"},
	}
	for _, p := range pairs {
		a, errA := Canonicalize(p[0])
		b, errB := Canonicalize(p[1])
		if errA != nil || errB != nil {
			t.Fatalf("unexpected errors: %v, %v", errA, errB)
		}
		if a != b {
			t.Errorf("Canonicalize(%q) = %q, Canonicalize(%q) = %q, want equal", p[0], a, p[1], b)
		}
	}
}

func TestCanonicalize_DistinctLiterals(t *testing.T) {
	templates := []string{
		"/widgets/{name}",
		"/gadgets/{name}",
		"/widgets",
		"/widgets/{name}/parts",
		"/widgets/{name}/parts/{part}",
		"/widgets/{name}/{part}",
		"/",
	}
	seen := make(map[ResourceID]string)
	for _, tmpl := range templates {
		id := MustCanonicalize(tmpl)
		if other, ok := seen[id]; ok {
			t.Errorf("%q and %q both canonicalize to %q", other, tmpl, id)
		}
		seen[id] = tmpl
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	templates := []string{
		"/widgets/{name}",
		"/Subscriptions/{sub}/providers/Microsoft.Foo/bars/{bar}?api=Test",
		"/files('{fileId}')/content",
		"/",
	}
	for _, tmpl := range templates {
		once := MustCanonicalize(tmpl)
		twice, err := Canonicalize(string(once))
		if err != nil {
			t.Fatalf("Canonicalize(%q) error = %v", once, err)
		}
		if once != twice {
			t.Errorf("Canonicalize(Canonicalize(%q)) = %q, want %q", tmpl, twice, once)
		}
	}
}

func TestCanonicalize_CaseInsensitive(t *testing.T) {
	a := MustCanonicalize("/Widgets/{name}")
	b := MustCanonicalize("/widgets/{Name}")
	if a != b {
		t.Errorf("got %q and %q, want equal ids", a, b)
	}
}

func TestCanonicalTemplate(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"/Widgets/{name}", "/Widgets/{}"},
		{"/providers/Microsoft.Foo/{a}-{b}", "/providers/Microsoft.Foo/{}-{}"},
		{"/Widgets/{name}?Op=X", "/Widgets/{}?Op=X"},
		{"/Widgets/{name}?", "/Widgets/{}"},
		{"/", "/"},
		{"/{name}", "/{}"},
	}
	for _, tt := range tests {
		got, err := CanonicalTemplate(tt.template)
		if err != nil {
			t.Fatalf("CanonicalTemplate(%q) error = %v", tt.template, err)
		}
		if got != tt.want {
			t.Errorf("CanonicalTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestMustCanonicalize_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCanonicalize("/{name}")
}
