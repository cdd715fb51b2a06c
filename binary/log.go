// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"io/ioutil"
	"log"
)

// logger is a package-level debug logger, discarded by default. It is
// a tracing convenience only: diagnostics produced while decoding
// belong to the caller's diag.Sink, never to this logger.
var logger = log.New(ioutil.Discard, "", 0)

// SetLogger installs l as the destination for this package's
// decode-tracing output. Pass nil to restore the discarding default.
func SetLogger(l *log.Logger) {
	if l == nil {
		logger = log.New(ioutil.Discard, "", 0)
		return
	}
	logger = l
}
