package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vezgo/core"
)

var (
	_ gocmd.Commander[AddAccountMessage]    = (*AddAccountCommand)(nil)
	_ gocmd.Commander[SyncAccountMessage]   = (*SyncAccountCommand)(nil)
	_ gocmd.Commander[RemoveAccountMessage] = (*RemoveAccountCommand)(nil)

	_ AccountService = (*ClientAccountService)(nil)
	_ SessionOpener  = (*core.Client)(nil)
)
