package uart

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Identify(t *testing.T) {
	d := NewDecoder(log.NewNopLogger(), bytes.NewReader([]byte{'?', 0x00, 0x2A, 0x00}))

	cmd, err := d.Decode()
	require.NoError(t, err)
	require.Equal(t, &IdentifyCommand{Nonce: 0x002A}, cmd)
	require.Zero(t, d.Skipped())
}

func TestDecoder_AllCommands(t *testing.T) {
	cmds := []Command{
		&IdentifyCommand{Nonce: 0xBEEF},
		&SendFileCommand{Path: "/games/élite.bin", Offset: 0x00012345, Length: 512},
		&RequestCharCommand{},
		&PrintCharCommand{Char: 0xE9},
		&StatFileCommand{Path: "readme.txt"},
		&ReadDirectoryCommand{Index: 3, Path: "/"},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, cmd := range cmds {
		require.NoError(t, WriteCommand(w, cmd))
	}

	d := NewDecoder(nil, &buf)
	for _, expect := range cmds {
		actual, err := d.Decode()
		require.NoError(t, err)
		require.Equal(t, expect, actual)
	}

	_, err := d.Decode()
	require.Equal(t, io.EOF, err)
}

func TestDecoder_SkipsNoise(t *testing.T) {
	input := []byte{
		'x', 'y', 0x00, // noise
		'?', 0x09, // unknown identifier
		'?', 0x02, // RequestChar
	}
	d := NewDecoder(nil, bytes.NewReader(input))

	cmd, err := d.Decode()
	require.NoError(t, err)
	require.Equal(t, &RequestCharCommand{}, cmd)
	require.Equal(t, uint64(5), d.Skipped())
}

func TestDecoder_RepeatedSentinel(t *testing.T) {
	d := NewDecoder(nil, bytes.NewReader([]byte{'?', '?', 0x03, 'A'}))

	cmd, err := d.Decode()
	require.NoError(t, err)
	require.Equal(t, &PrintCharCommand{Char: 'A'}, cmd)
	require.Equal(t, uint64(1), d.Skipped())
}

func TestDecoder_NoiseOnly(t *testing.T) {
	d := NewDecoder(nil, bytes.NewReader([]byte{'x', 0x00, 0xFF}))

	_, err := d.Decode()
	require.Equal(t, io.EOF, err)
	require.Equal(t, uint64(3), d.Skipped())
}

func TestDecoder_Truncated(t *testing.T) {
	d := NewDecoder(nil, bytes.NewReader([]byte{'?', 0x04, 0x05, 0x00, 'a'}))

	_, err := d.Decode()
	require.Error(t, err)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "unexpected error %v", err)
}

func TestDecoder_EmptyStream(t *testing.T) {
	d := NewDecoder(nil, bytes.NewReader(nil))
	_, err := d.Decode()
	require.Equal(t, io.EOF, err)
}

func TestReadResponse(t *testing.T) {
	tt := []struct {
		name   string
		id     CommandID
		resp   Response
		expect Response
	}{
		{"identify", CommandIdentify, &IdentifyResponse{Value: 0xFFD5}, nil},
		{"send file", CommandSendFile, &SendFileResponse{Data: []byte("hello")}, nil},
		{"request char", CommandRequestChar, &RequestCharResponse{Code: 16}, nil},
		{"print char", CommandPrintChar, nil, nil},
		{"stat file", CommandStatFile, &StatFileResponse{IsDir: true, Length: 4096}, nil},
		{
			name: "read directory",
			id:   CommandReadDirectory,
			resp: &ReadDirectoryResponse{Entry: DirectoryEntry{Name: "naïve.txt", Length: 0x123456}},
		},
		{
			name:   "truncated length",
			id:     CommandStatFile,
			resp:   &StatFileResponse{Length: 0x1_0000_0001},
			expect: &StatFileResponse{Length: 1},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			require.NoError(t, WriteStatus(w, StatusOK))
			require.NoError(t, WritePayload(w, tc.resp))

			actual, err := ReadResponse(NewReader(&buf), tc.id)
			require.NoError(t, err)

			expect := tc.expect
			if expect == nil {
				expect = tc.resp
			}
			if tc.resp == nil {
				require.Nil(t, actual)
			} else {
				require.Equal(t, expect, actual)
			}
			require.Zero(t, buf.Len())
		})
	}
}

func TestReadResponse_NotAvailable(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'!', 0x01}))
	_, err := ReadResponse(r, CommandStatFile)
	require.Equal(t, ErrNotAvailable, err)
}

func TestReadResponse_UnknownStatus(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'!', 0x03}))
	_, err := ReadResponse(r, CommandStatFile)
	require.True(t, errors.Is(err, ErrUnknownStatus), "unexpected error %v", err)
}

func TestReadResponse_SkipsNoise(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'x', '!', 0x00, 0xD5, 0xFF}))
	resp, err := ReadResponse(r, CommandIdentify)
	require.NoError(t, err)
	require.Equal(t, &IdentifyResponse{Value: 0xFFD5}, resp)
}
