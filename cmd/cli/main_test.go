package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionalArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no flags",
			args: []string{"upload", "a.txt"},
			want: []string{"upload", "a.txt"},
		},
		{
			name: "separate flag value",
			args: []string{"-m", "memory", "upload", "a.txt"},
			want: []string{"upload", "a.txt"},
		},
		{
			name: "joined flag value keeps following subcommand",
			args: []string{"-m=memory", "upload", "a.txt"},
			want: []string{"upload", "a.txt"},
		},
		{
			name: "mixed forms",
			args: []string{"-m=memory", "-o", "memory", "verify", "a.txt"},
			want: []string{"verify", "a.txt"},
		},
		{
			name: "flag followed by another flag consumes no value",
			args: []string{"-m", "-w=8", "list"},
			want: []string{"list"},
		},
		{
			name: "config flag",
			args: []string{"-config", "cfg.json", "stats"},
			want: []string{"stats"},
		},
		{
			name: "only flags",
			args: []string{"-m", "memory"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, positionalArgs(tt.args))
		})
	}
}
