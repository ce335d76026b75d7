package reflog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

const sampleLog = `0000000000000000000000000000000000000000 7d93f7dad4160ce2a30e7083e1fbe189b68142bc LBW <dev@zeta.io> 1706772738 +0800	WIP on master: 8438002 form-string.md: correct the example
7d93f7dad4160ce2a30e7083e1fbe189b68142bc 46ec16b743c9020366a11f9cb3ea61f1ec04ca6 LBW <dev@zeta.io> 1706772760 +0800	WIP on master: 8438002 form-string.md: correct the example
46ec16b743c9020366a11f9cb3ea61f1ec04ca6 c0869060ede3e208c464cac81fd78e6f31cecb5 LBW <dev@zeta.io> 1706773202 +0800	WIP on master: d343999 ZZZZ
`

func TestReflogParseAndSerialize(t *testing.T) {
	d := &DB{}
	entries, err := d.parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "WIP on master: d343999 ZZZZ", entries[2].Message)

	var buf bytes.Buffer
	require.NoError(t, d.serialize(&buf, entries))
	require.Contains(t, buf.String(), "WIP on master: 8438002")
}

func TestReflogDrop(t *testing.T) {
	d := &DB{}
	entries, err := d.parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	log := &Reflog{name: "refs/stash", Entries: entries}
	require.NoError(t, log.Drop(1, true))
	require.Len(t, log.Entries, 2)
}

func TestReflogPush(t *testing.T) {
	entries, err := (&DB{}).parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	log := &Reflog{name: "refs/stash", Entries: entries}
	before := len(log.Entries)
	log.Push(plumbing.NewHash("bd9ddb6547b224fd6bb39b7f7fddf833b37f4ddb"), &object.Signature{
		Name:  "LBW",
		Email: "dev@zeta.io",
		When:  time.Now(),
	}, "PushE")
	require.Len(t, log.Entries, before+1)
	require.Equal(t, "PushE", log.Entries[0].Message)
	require.Equal(t, entries[0].N, log.Entries[0].O)
}

func TestReflogWriteAndRead(t *testing.T) {
	d := NewDB(t.TempDir())
	entries, err := (&DB{}).parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	o := &Reflog{name: "refs/heads/mainline", Entries: entries}
	require.NoError(t, d.Write(o))

	read, err := d.Read("refs/heads/mainline")
	require.NoError(t, err)
	require.Len(t, read.Entries, 3)
}
