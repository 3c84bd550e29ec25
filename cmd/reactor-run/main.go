// Command reactor-run runs JavaScript against the reactor module, either
// from a script or interactively.
//
// Scripts load the module with require('luaevent.core') (configurable),
// and have a console and a stdio global:
//
//	const core = require('luaevent.core');
//	const base = core.new();
//	base.addevent(stdio.stdin, core.EV_READ, () => {
//	    const s = stdio.read(stdio.stdin.fd);
//	    if (s === null) return core.LEAVE;
//	    stdio.write(stdio.stdout.fd, s.toUpperCase());
//	});
//	base.loop();
package main

import (
	"log"
	"os"
)

func main() {
	wrapper := NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
