package cloudinary

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestResourceType(t *testing.T) {
	require.Equal(t, "image", ResourceType("image/png"))
	require.Equal(t, "video", ResourceType("video/mp4"))
	require.Equal(t, "raw", ResourceType("application/pdf"))
	require.Equal(t, "raw", ResourceType(""))
}

func TestBuildPublicIDKeepsExtension(t *testing.T) {
	id := buildPublicID("Lab Report #1.PDF")
	require.True(t, strings.HasPrefix(id, "Lab-Report--1-"))
	require.True(t, strings.HasSuffix(id, ".pdf"))

	id = buildPublicID("###.zip")
	require.True(t, strings.HasPrefix(id, "attachment-"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
