package ledger

import "github.com/masq-node/accountant/logconfig"

var log = logconfig.NewPackageLogger("LEDG")
