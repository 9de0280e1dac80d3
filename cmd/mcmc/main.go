// Command mcmc sends raw requests to memcached and benchmarks servers
// through the mcmc engine.
package main

func main() {
	Execute()
}
