// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package forge

import "math/rand"

// Perturbation spreads.  A stat moves by rng.Intn(spread) - spread/2, so
// damage lands in [base-10, base+9].
const (
	damageSpread     = 20
	durabilitySpread = 16
	speedSpread      = 12
)

// PerturbStats derives provisional stats from base.  The contract rolls
// the real values at mint; these only feed the artwork and metadata.  Every
// stat is clamped to at least 1.
func PerturbStats(base Stats, rng *rand.Rand) Stats {
	return Stats{
		Damage:     perturb(base.Damage, damageSpread, rng),
		Durability: perturb(base.Durability, durabilitySpread, rng),
		Speed:      perturb(base.Speed, speedSpread, rng),
	}
}

func perturb(base, spread int, rng *rand.Rand) int {
	return max(1, base+rng.Intn(spread)-spread/2)
}

// RollRarity picks a provisional rarity uniformly.
func RollRarity(rng *rand.Rand) Rarity {
	return Rarity(rng.Intn(numRarities))
}
