package main

import "testing"

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-config", "a.yaml", "-max-pages", "3"}, "a.yaml"},
		{[]string{"--config=b.yaml"}, "b.yaml"},
		{[]string{"-max-pages", "3"}, ""},
		{[]string{"config", "c.yaml"}, ""},
		{[]string{"-config"}, ""},
	}
	for _, tt := range tests {
		if got := configPathFromArgs(tt.args); got != tt.want {
			t.Errorf("configPathFromArgs(%v): got %q, want %q", tt.args, got, tt.want)
		}
	}
}
