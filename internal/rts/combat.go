package rts

// Combat tuning.
const (
	projectileHitSlack = 6.0 // extra contact radius beyond target size

	explosionLifetime     = 20 // ticks an EXPLOSION lingers for rendering
	flakExplosionLifetime = 12

	turretScanInterval = 15 // ticks between defensive building scans
)

// CombatManager advances everything a weapon has spawned: projectile
// flight and detonation, beam aging, field effect damage, plus the
// fire control for defensive buildings and garrisoned bunkers.
type CombatManager struct {
	game *Game
}

func newCombatManager(g *Game) *CombatManager {
	return &CombatManager{game: g}
}

// tick runs one combat pass in a fixed order: building fire control,
// projectile flight, beam aging, field effects.
func (cm *CombatManager) tick() {
	cm.tickBuildingFire()
	cm.tickProjectiles()
	cm.tickBeams()
	cm.tickFieldEffects()
}

// tickBuildingFire scans and fires defensive turrets and garrisoned
// bunker occupants. Turret scans are staggered the same way idle unit
// scans are.
func (cm *CombatManager) tickBuildingFire() {
	g := cm.game
	e := g.entities
	for _, id := range e.sortedBuildingIDs() {
		b := e.buildings[id]
		if !b.active || b.underConstruction {
			continue
		}

		// Only buildings flagged defensive run fire control.
		if b.def.Defensive && b.weapon != nil {
			b.weapon.tickCooldown()
			// Turrets hold fire while their faction is power-starved.
			if !b.owner.lowPower && ((g.tick+int(b.id))%turretScanInterval == 0 || b.weapon.ready()) {
				cm.fireTurret(b)
			}
		}

		if len(b.garrison) > 0 {
			cm.fireGarrison(b)
		}
	}
}

func (cm *CombatManager) fireTurret(b *Building) {
	g := cm.game
	target := g.entities.FindNearestEnemyTargetable(targetScan{
		from:           b.pos,
		team:           b.team,
		weapon:         b.weapon,
		radius:         b.weapon.Range() + 40,
		cloakDetection: b.def.CloakDetection,
	})
	if target == nil || !b.weapon.inRange(b.pos, target) {
		return
	}
	b.turretRotation = facing(b.pos, target.Position())
	if !b.weapon.ready() {
		return
	}
	if ords := b.weapon.fire(g.entities, b.id, b.pos, b.team, target, g.tick); len(ords) > 0 {
		g.spawnOrdinances(ords)
		g.log.EventVerbose(g.tick, b.owner.playerID, "combat", "turretFire", b.def.Type, float64(target.ID()))
	}
}

// fireGarrison lets each housed unit fire its own weapon from the
// bunker's position.
func (cm *CombatManager) fireGarrison(b *Building) {
	g := cm.game
	for _, uid := range b.garrison {
		u := g.entities.Unit(uid)
		if u == nil || !u.active || u.weapon == nil {
			continue
		}
		u.weapon.tickCooldown()
		target := g.entities.FindNearestEnemyTargetable(targetScan{
			from:           b.pos,
			team:           b.team,
			weapon:         u.weapon,
			radius:         u.weapon.Range() + b.def.TargetRadius(),
			cloakDetection: u.def.CloakDetection,
		})
		if target == nil || !u.weapon.ready() || !u.weapon.inRange(b.pos, target) {
			continue
		}
		if ords := u.weapon.fire(g.entities, b.id, b.pos, b.team, target, g.tick); len(ords) > 0 {
			g.spawnOrdinances(ords)
			g.log.EventVerbose(g.tick, u.owner.playerID, "combat", "garrisonFire", b.def.Type, float64(target.ID()))
		}
	}
}

// tickProjectiles flies every round one step and resolves contact.
func (cm *CombatManager) tickProjectiles() {
	g := cm.game
	e := g.entities
	dt := TickSeconds
	for _, id := range sortedProjectileIDs(e) {
		p := e.projectiles[id]
		if p.spent {
			continue
		}

		// Homing rounds chase their target; a dead target leaves them
		// ballistic on their last vector.
		if p.target != NoEntity {
			if t := e.Targetable(p.target); t != nil && t.IsActive() {
				p.aim = t.Position()
				p.vel = scale(normalized(sub(p.aim, p.pos)), p.speed)
			} else {
				p.target = NoEntity
			}
		}

		step := scale(p.vel, dt)
		p.pos = add(p.pos, step)
		p.traveled += length(step)

		if cm.projectileContact(p) {
			continue
		}
		// Reaching the aim point or running dry detonates in place.
		if dist(p.pos, p.aim) <= length(step) || p.traveled >= p.maxRange {
			cm.detonate(p, nil)
		}
	}
}

// projectileContact checks body overlap against eligible targets.
// Returns true when the round detonated.
func (cm *CombatManager) projectileContact(p *Projectile) bool {
	e := cm.game.entities
	for _, t := range e.allTargetables() {
		if !t.IsActive() || t.ID() == p.source {
			continue
		}
		if t.Team() == p.team && !p.friendly {
			continue
		}
		if p.hits != nil && !p.hits[t.Elevation()] {
			continue
		}
		if dist(p.pos, t.Position()) <= t.TargetSize()+projectileHitSlack {
			cm.detonate(p, t)
			return true
		}
	}
	return false
}

// detonate ends a projectile: direct damage to the struck target, or
// an area effect for AoE ordinance. direct may be nil for ground
// bursts.
func (cm *CombatManager) detonate(p *Projectile, direct Targetable) {
	g := cm.game
	p.spent = true

	if p.aoeRadius <= 0 {
		if direct != nil {
			direct.TakeDamage(p.damage, p.source)
			g.log.EventVerbose(g.tick, -1, "combat", "hit", string(p.ordType), p.damage)
		}
		return
	}

	effectType := EffectExplosion
	lifetime := explosionLifetime
	if p.ordType == OrdinanceFlak {
		effectType = EffectFlakExplosion
		lifetime = flakExplosionLifetime
	}
	id := g.entities.NextID()
	g.entities.fieldEffects[id] = &FieldEffect{
		id:            id,
		effectType:    effectType,
		center:        p.pos,
		radius:        p.aoeRadius,
		damagePerTick: p.damage,
		lifetime:      lifetime,
		team:          p.team,
		friendly:      p.friendly,
		source:        p.source,
		hits:          p.hits,
	}
}

// tickBeams ages out beam visuals.
func (cm *CombatManager) tickBeams() {
	e := cm.game.entities
	for id, b := range e.beams {
		if cm.game.tick-b.spawnTick >= b.duration {
			delete(e.beams, id)
		}
	}
}

// effectHits reports whether an effect damages the elevation band.
// Weapon-spawned effects carry the firing weapon's capability set;
// environmental effects (ELECTRIC, SANDSTORM) hit everything.
func effectHits(fe *FieldEffect, el Elevation) bool {
	if fe.hits != nil {
		return fe.hits[el]
	}
	return true
}

// tickFieldEffects applies one-shot damage for fresh instant effects,
// periodic damage for ongoing ones, and culls the expired.
func (cm *CombatManager) tickFieldEffects() {
	g := cm.game
	e := g.entities
	for _, id := range sortedFieldEffectIDs(e) {
		fe := e.fieldEffects[id]
		fe.age++

		apply := false
		if fe.instant() {
			if !fe.spentInitial {
				fe.spentInitial = true
				apply = true
			}
		} else if fe.age-fe.lastDamage >= fieldEffectDamageInterval {
			fe.lastDamage = fe.age
			apply = true
		}

		if apply {
			for _, t := range e.allTargetables() {
				if !t.IsActive() || !effectHits(fe, t.Elevation()) {
					continue
				}
				if t.Team() == fe.team && !fe.friendly {
					continue
				}
				if dist(fe.center, t.Position()) <= fe.radius+t.TargetSize() {
					t.TakeDamage(fe.damagePerTick, fe.source)
				}
			}
			// Destructible terrain catches ground bursts too.
			if effectHits(fe, ElevationGround) {
				for _, oid := range e.sortedObstacleIDs() {
					o := e.obstacles[oid]
					if !o.active || o.hitPoints <= 0 {
						continue
					}
					if dist(fe.center, o.pos) <= fe.radius+o.blockRadius() {
						o.damage(fe.damagePerTick)
					}
				}
			}
		}

		if fe.expired() {
			delete(e.fieldEffects, id)
		}
	}
}

func sortedProjectileIDs(e *GameEntities) []EntityID {
	ids := make([]EntityID, 0, len(e.projectiles))
	for id := range e.projectiles {
		ids = append(ids, id)
	}
	sortEntityIDs(ids)
	return ids
}

func sortedFieldEffectIDs(e *GameEntities) []EntityID {
	ids := make([]EntityID, 0, len(e.fieldEffects))
	for id := range e.fieldEffects {
		ids = append(ids, id)
	}
	sortEntityIDs(ids)
	return ids
}
