// Package session drives a LOKE flashing session against a device in
// Download Mode.
//
// # Overview
//
// A Session owns its serial link exclusively and walks the protocol
// state machine:
//
//	Disconnected --Open-->   Open
//	Open         --Greet-->  Greeted       (ODIN -> LOKE or ACK)
//	Greeted      --WritePit--> Greeted     (PITM, padded segments, stability window)
//	Greeted      --ReadPit--> Greeted      (PITR, drain until idle)
//	Greeted      --Flash-->  Greeted       (DATA + chunked stream)
//	Greeted      --End/Reboot--> Ended     (ENDS / REBT)
//	any          --fault-->  Faulted
//
// # Basic Usage
//
//	port, err := locator.New().Find()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess := session.New(link.New(port.Path))
//	if err := sess.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.Greet(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	img, err := firmware.FromFile("boot.img")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sess.Flash(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//	sess.End(ctx)
//
// # Progress Tracking
//
// Track uploads with a callback. The callback runs on the transfer
// goroutine and must return quickly; emissions are throttled to one
// per MiB plus one at completion:
//
//	sess := session.New(lk,
//	    session.WithProgressCallback(func(p session.Progress) {
//	        fmt.Printf("%s: %d/%d\n", p.Image, p.BytesSent, p.Total)
//	    }),
//	)
//
// # Recovery
//
// A transient I/O stall during a bulk transfer is handled in place:
// the link buffers are purged with in-flight I/O aborted, the session
// waits out a stability window, the handshake is re-run and the
// failing chunk is rewritten once. Retry budgets are fixed (one
// greet retry, one chunk retry, one recovery per stall), so nothing
// retries indefinitely.
//
// # Concurrency
//
// A Session is confined to one goroutine. Background tasks (the port
// monitor, UI observers) communicate through callbacks and the
// Live gate; they never touch the link.
package session
