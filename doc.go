// Package mcmc is a minimal memcached client engine.
//
// It does not own buffers and does not run an event loop. A Connection
// takes care of the handshake (blocking or nonblocking), sends the bytes
// it is given and records the last failure. Responses are decoded by the
// protocol package, directly from the caller's read buffer.
//
// # Nonblocking usage
//
//	conn := mcmc.NewConnection(mcmc.NewConfig(), mcmc.Options{Nonblocking: true})
//	state, err := conn.Connect(ctx, "127.0.0.1", "11211")
//	// wait for conn.Fd() to be writable, then:
//	if state == mcmc.StateConnecting {
//	    state, err = conn.CheckNonblockConnect()
//	}
//
//	segs := [][]byte{[]byte("mg foo v\r\n"), []byte("mn\r\n")}
//	for len(segs) > 0 {
//	    n, err := conn.RequestWritev(segs, 2)
//	    if errors.Is(err, mcmc.ErrWantWrite) {
//	        // wait for writability
//	        continue
//	    }
//	    segs = mcmc.AdvanceSegments(segs, n)
//	}
//
//	buf := make([]byte, mcmc.MinBufferSize(conn.Options()))
//	n, err := conn.Receive(buf)
//	for off := 0; ; {
//	    resp, err := conn.ParseAt(buf, off, n)
//	    if err != nil {
//	        break // ErrShort: compact buf[off:n] and Receive more
//	    }
//	    off += resp.Len()
//	}
//
// Blocking connections honor SetDeadline; nonblocking ones never block and
// leave timeouts to the readiness loop.
//
// ErrWantRead and ErrWantWrite are not failures and are never recorded in
// the diagnostics. Use ShouldCloseConnection to tell recoverable errors from
// the ones that leave the connection unusable.
package mcmc
