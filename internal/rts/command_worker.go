package rts

// Worker loop tuning.
const (
	interactMargin = 12.0 // extra reach beyond body radii for touch interactions

	extractInterval = 15 // ticks between extraction pulls
	extractAmount   = 5  // resource units per pull
)

// Harvest and mine phases.
const (
	phaseToDeposit = iota
	phaseExtract
	phaseToDropoff
)

// tickConstruct walks to the building site and contributes build
// progress while adjacent. Several workers on one site stack their
// contributions.
func (u *Unit) tickConstruct(g *Game) {
	c := u.command
	b := g.entities.Building(c.targetID)
	if b == nil || !b.active || !b.underConstruction {
		u.advanceCommand()
		return
	}
	reach := b.def.TargetRadius() + u.def.Radius + interactMargin
	if dist(u.Position(), b.pos) > reach {
		c.moveToward(g, u, b.pos, reach)
		return
	}
	u.body.SetVelocity(zeroVec)
	u.body.Face(b.pos)
	if b.addConstruction(1 / float64(b.def.BuildTicks)) {
		g.onBuildingCompleted(b)
	}
}

// tickHarvest runs the gather loop: walk to the deposit, pull resource
// until full or dry, deliver to the nearest refinery or headquarters,
// repeat. The command ends when the deposit is gone and the hold is
// empty.
func (u *Unit) tickHarvest(g *Game) {
	u.tickGatherLoop(g, false)
}

// tickMine is the gather loop for ore. Each extraction pull consumes a
// pickaxe use; a miner with a worn-out pickaxe can deliver what it
// holds but never extract again.
func (u *Unit) tickMine(g *Game) {
	u.tickGatherLoop(g, true)
}

func (u *Unit) tickGatherLoop(g *Game, mining bool) {
	c := u.command
	if u.carry == nil {
		u.advanceCommand()
		return
	}
	if mining && u.pickaxe == nil {
		u.advanceCommand()
		return
	}

	deposit := g.entities.Obstacle(c.targetID)
	depositGone := deposit == nil || !deposit.Harvestable()
	if mining && u.pickaxe.remaining <= 0 {
		depositGone = true
	}

	switch c.phase {
	case phaseToDeposit:
		if depositGone {
			if u.carry.amount > 0 {
				c.phase = phaseToDropoff
				c.path = nil
				return
			}
			u.advanceCommand()
			return
		}
		reach := deposit.blockRadius() + u.def.Radius + interactMargin
		if dist(u.Position(), deposit.pos) > reach {
			c.moveToward(g, u, deposit.pos, reach)
			return
		}
		u.body.SetVelocity(zeroVec)
		u.body.Face(deposit.pos)
		c.phase = phaseExtract
		c.timer = 0

	case phaseExtract:
		if depositGone || u.carry.amount >= u.def.CarryCapacity {
			c.phase = phaseToDropoff
			c.path = nil
			return
		}
		u.body.SetVelocity(zeroVec)
		c.timer++
		if c.timer < extractInterval {
			return
		}
		c.timer = 0
		want := extractAmount
		if room := u.def.CarryCapacity - u.carry.amount; want > room {
			want = room
		}
		got := deposit.extract(want)
		if got == 0 {
			c.phase = phaseToDropoff
			c.path = nil
			return
		}
		u.carry.resource = deposit.resource
		u.carry.amount += got
		if mining {
			u.pickaxe.remaining--
		}
		g.log.EventVerbose(g.tick, u.owner.playerID, "economy", "extract", string(deposit.resource), float64(got))

	case phaseToDropoff:
		drop := g.nearestDropoff(u)
		if drop == nil {
			// Nowhere to deliver; wait in place holding the load.
			u.body.SetVelocity(zeroVec)
			return
		}
		reach := drop.def.TargetRadius() + u.def.Radius + interactMargin
		if dist(u.Position(), drop.pos) > reach {
			c.moveToward(g, u, drop.pos, reach)
			return
		}
		u.deliverLoad(g, mining)
		if depositGone {
			u.advanceCommand()
			return
		}
		c.phase = phaseToDeposit
		c.path = nil
	}
}

// deliverLoad converts the carried resource into credits, pro-rated
// against a full hold.
func (u *Unit) deliverLoad(g *Game, mining bool) {
	if u.carry.amount <= 0 {
		return
	}
	per := g.balance.Economy.HarvestDeliveryCredits
	key := "harvestDelivery"
	if mining {
		per = g.balance.Economy.MineDeliveryCredits
		key = "mineDelivery"
	}
	credits := per * u.carry.amount / u.def.CarryCapacity
	if credits < 1 {
		credits = 1
	}
	u.owner.addCredits(credits)
	g.log.Event(g.tick, u.owner.playerID, "economy", key, float64(credits))
	u.carry.amount = 0
	u.carry.resource = ""
}

// tickGarrison walks to a bunker and boards it. Boarding removes the
// unit from the world; it stops being targetable until it exits.
func (u *Unit) tickGarrison(g *Game) {
	c := u.command
	b := g.entities.Building(c.targetID)
	if b == nil || !b.active || b.underConstruction ||
		b.team != u.team || b.def.GarrisonCapacity == 0 ||
		len(b.garrison) >= b.def.GarrisonCapacity {
		u.advanceCommand()
		return
	}
	reach := b.def.TargetRadius() + u.def.Radius + interactMargin
	if dist(u.Position(), b.pos) > reach {
		c.moveToward(g, u, b.pos, reach)
		return
	}
	g.houseUnit(u, b.id)
	b.garrison = append(b.garrison, u.id)
	g.log.Event(g.tick, u.owner.playerID, "command", "garrison", float64(u.id))
	u.advanceCommand()
}
