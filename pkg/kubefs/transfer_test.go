package kubefs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRoundTrip(t *testing.T) {
	type scenario struct {
		testName string
		content  []byte
	}

	scenarios := []scenario{
		{"empty", []byte{}},
		{"small", []byte("hello world\n")},
		{"binary", []byte{0, 1, 2, 0xff, '\r', '\n', 0x1b}},
		{"bigger than one dd block", bytes.Repeat([]byte("0123456789abcdef"), (10<<20)/16+1)},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			fake := channel.NewFake()
			fs := NewDummyFileSystem(fake)
			ctx := context.Background()

			written, err := fs.Upload(ctx, testTarget, "/data/f", bytes.NewReader(s.content))
			require.NoError(t, err)
			assert.Equal(t, int64(len(s.content)), written)

			sink := &bytes.Buffer{}
			read, err := fs.Download(ctx, testTarget, "/data/f", sink)
			require.NoError(t, err)
			assert.Equal(t, int64(len(s.content)), read)
			assert.Equal(t, string(s.content), sink.String())

			assert.Equal(t, []string{
				"dd of=/data/f status=none bs=10M",
				"dd if=/data/f status=none",
			}, fake.CommandLines())
			assert.True(t, fake.Calls()[0].Stdin)
			assert.False(t, fake.Calls()[1].Stdin)
		})
	}
}

func TestDownloadMissingFile(t *testing.T) {
	fs := NewDummyFileSystem(channel.NewFake())

	sink := &bytes.Buffer{}
	n, err := fs.Download(context.Background(), testTarget, "/nope", sink)
	assert.True(t, HasErrorCode(err, RemoteCommandFailure))
	assert.EqualError(t, err, "dd: failed to open '/nope': No such file or directory\n")
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, sink.Len())
}

func TestTransferTimeoutIsSeparate(t *testing.T) {
	slowly := func(ctx context.Context, req channel.Request) error {
		select {
		case <-time.After(60 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err := req.Stdout.Write([]byte("done\n"))
		return err
	}

	type scenario struct {
		testName        string
		transferTimeout time.Duration
		expectErr       bool
	}

	scenarios := []scenario{
		{"transfers ignore the command timeout", 0, false},
		{"transfers honour their own timeout", 20 * time.Millisecond, true},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			fake := channel.NewFake().
				ReplyFunc("dd if=/data/big status=none", slowly).
				ReplyFunc("md5sum /data/big", slowly)
			fs := NewFileSystem(NewDummyLog(), fake, 20*time.Millisecond, s.transferTimeout, time.UTC)
			ctx := context.Background()

			sink := &bytes.Buffer{}
			_, err := fs.Download(ctx, testTarget, "/data/big", sink)
			if s.expectErr {
				assert.True(t, HasErrorCode(err, TransportFailure))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "done\n", sink.String())
			}

			_, err = fs.Checksum(ctx, testTarget, "/data/big")
			assert.True(t, HasErrorCode(err, TransportFailure))
		})
	}
}
