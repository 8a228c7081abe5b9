package testutil

import (
	"fmt"

	"github.com/roach88/reach/internal/network"
)

// Chain builds S0→S1→…→Sn with one route per cost. Route i (1-based) is
// labeled "L<i>".
func Chain(costs ...int64) *network.Network {
	net := network.New("chain")
	net.AddStation("S0")
	for i, c := range costs {
		net.AddRoute(
			fmt.Sprintf("S%d", i),
			fmt.Sprintf("L%d", i+1),
			fmt.Sprintf("S%d", i+1),
			c,
		)
	}
	return net
}

// GalacticStations are the stations of the Galactic network, in order.
var GalacticStations = []string{
	"Tatooine", "Alderaan", "Yavin IV", "Hoth", "Dagobah", "Bespin",
	"Endor", "Naboo", "Coruscant", "Kamino", "Mandalore",
}

// Galactic builds the eleven-station demo network: a single chain where
// "Ruta <i>" joins station i-1 to station i in 10*i minutes.
func Galactic() *network.Network {
	net := network.New("galactic")
	for _, name := range GalacticStations {
		net.AddStation(name)
	}
	for i := 1; i < len(GalacticStations); i++ {
		net.AddRoute(
			GalacticStations[i-1],
			fmt.Sprintf("Ruta %d", i),
			GalacticStations[i],
			int64(10*i),
		)
	}
	return net
}
