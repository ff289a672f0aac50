package pkgmgr

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    Name
		wantErr bool
	}{
		{name: Apt},
		{name: Yum},
		{name: "pacman", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			m, err := Lookup(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownManager) {
					t.Fatalf("err = %v, want ErrUnknownManager", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name() != tt.name {
				t.Fatalf("Name() = %q, want %q", m.Name(), tt.name)
			}
		})
	}
}

func TestAptInstall(t *testing.T) {
	m, _ := Lookup(Apt)

	got := m.Install([]string{"git", "vim"})
	want := "apt-get update -qq \\\n" +
		"    && apt-get install -y -q --no-install-recommends \\\n" +
		"           git \\\n" +
		"           vim \\\n" +
		"    && rm -rf /var/lib/apt/lists/*"

	if got != want {
		t.Fatalf("Install() =\n%s\nwant\n%s", got, want)
	}
}

func TestYumInstall(t *testing.T) {
	m, _ := Lookup(Yum)

	got := m.Install([]string{"git"})
	want := "yum install -y -q \\\n" +
		"           git \\\n" +
		"    && yum clean all \\\n" +
		"    && rm -rf /var/cache/yum/*"

	if got != want {
		t.Fatalf("Install() =\n%s\nwant\n%s", got, want)
	}
}

func TestListKeepsOrderAndDuplicates(t *testing.T) {
	got := List([]string{"zlib1g", "curl", "zlib1g"})
	want := "           zlib1g \\\n           curl \\\n           zlib1g"
	if got != want {
		t.Fatalf("List() = %q, want %q", got, want)
	}
}

func TestChain(t *testing.T) {
	if got := Chain("a"); got != "a" {
		t.Fatalf("Chain(a) = %q, want a", got)
	}
	if got := Chain("a", "b"); got != "a \\\n    && b" {
		t.Fatalf("Chain(a, b) = %q", got)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "apt" || names[1] != "yum" {
		t.Fatalf("Names() = %v, want [apt yum]", names)
	}
}
