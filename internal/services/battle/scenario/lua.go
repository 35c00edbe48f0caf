package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Shopify/go-lua"
	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
)

const (
	battleTypeName = "battle"
	forceTypeName  = "force"
)

const (
	// LuaInstructionBudget bounds the VM instructions one script may execute.
	LuaInstructionBudget = 10_000_000
	luaHookInterval      = 1000
)

// Scripts only get the pure libraries. Globals that reach the host, load
// code or trap errors are removed after the libraries open.
var (
	luaLibraries = []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "math", Function: lua.MathOpen},
	}
	luaBlockedGlobals = []string{
		"dofile", "loadfile", "load", "loadstring", "require",
		"pcall", "xpcall", "print", "collectgarbage",
	}
	luaBlockedStringFuncs = []string{"rep", "format"}
)

type forceRef struct {
	scenario *Scenario
	index    int
}

// LoadLua runs a Lua scenario script. The script builds a battle with the
// Battle DSL and returns it:
//
//	local b = Battle.new("Ridge")
//	b:seed(7)
//	b:team("red", { name = "Red" })
//	b:team("blue")
//	b:force("red-1", { team = "red" }):unit("r1", { x = 0, weapons = { Gear.weapon("rifle", "1d6", 12) } })
//	return b
func LoadLua(src []byte, chunkName string) (*Scenario, error) {
	state := newLuaSandbox()
	registerLuaTypes(state)

	if chunkName == "" {
		chunkName = "scenario"
	}
	if err := lua.LoadBuffer(state, string(src), chunkName, "t"); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalid, "load lua", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalid, "run lua", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, apperrors.New(apperrors.CodeScenarioInvalid, "scenario script must return a Battle")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	s, ok := ud.(*Scenario)
	if !ok || s == nil {
		return nil, apperrors.New(apperrors.CodeScenarioInvalid, "scenario script returned an invalid Battle")
	}
	return s, nil
}

func newLuaSandbox() *lua.State {
	state := lua.NewState()
	for _, lib := range luaLibraries {
		lua.Require(state, lib.Name, lib.Function, true)
		state.Pop(1)
	}
	for _, name := range luaBlockedGlobals {
		state.PushNil()
		state.SetGlobal(name)
	}
	state.Global("string")
	for _, name := range luaBlockedStringFuncs {
		state.PushNil()
		state.SetField(-2, name)
	}
	state.Pop(1)

	// Once over budget the hook keeps failing, so a script cannot outlive it.
	executed := 0
	lua.SetDebugHook(state, func(l *lua.State, _ lua.Debug) {
		executed += luaHookInterval
		if executed > LuaInstructionBudget {
			l.PushString(fmt.Sprintf("instruction budget of %d exceeded", LuaInstructionBudget))
			l.Error()
		}
	}, lua.MaskCount, luaHookInterval)
	return state
}

func registerLuaTypes(state *lua.State) {
	registerType(state, battleTypeName, battleMethods)
	registerType(state, forceTypeName, forceMethods)

	state.NewTable()
	lua.SetFunctions(state, battleConstructor, 0)
	state.SetGlobal("Battle")

	state.NewTable()
	lua.SetFunctions(state, gearHelpers, 0)
	state.SetGlobal("Gear")
}

func registerType(state *lua.State, name string, methods []lua.RegistryFunction) {
	lua.NewMetaTable(state, name)
	state.NewTable()
	lua.SetFunctions(state, methods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

var battleConstructor = []lua.RegistryFunction{
	{Name: "new", Function: battleNew},
}

var gearHelpers = []lua.RegistryFunction{
	{Name: "weapon", Function: gearWeapon},
	{Name: "effect", Function: gearEffect},
}

func gearWeapon(state *lua.State) int {
	name := lua.CheckString(state, 1)
	damage := lua.CheckString(state, 2)
	rng := lua.CheckNumber(state, 3)
	accuracy := lua.OptInteger(state, 4, 0)
	state.NewTable()
	state.PushString(name)
	state.SetField(-2, "name")
	state.PushString(damage)
	state.SetField(-2, "damage")
	state.PushNumber(rng)
	state.SetField(-2, "range")
	state.PushInteger(accuracy)
	state.SetField(-2, "accuracy")
	return 1
}

func gearEffect(state *lua.State) int {
	kind := lua.CheckString(state, 1)
	rounds := lua.OptInteger(state, 2, 1)
	state.NewTable()
	state.PushString(kind)
	state.SetField(-2, "kind")
	state.PushInteger(rounds)
	state.SetField(-2, "rounds")
	return 1
}

func battleNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, battleTypeName)
	return 1
}

var battleMethods = []lua.RegistryFunction{
	{Name: "seed", Function: battleSeed},
	{Name: "max_rounds", Function: battleMaxRounds},
	{Name: "local_team", Function: battleLocalTeam},
	{Name: "withdrawal", Function: battleWithdrawal},
	{Name: "team", Function: battleTeam},
	{Name: "force", Function: battleForce},
}

func battleSeed(state *lua.State) int {
	s := checkBattle(state)
	s.Seed = int64(lua.CheckNumber(state, 2))
	state.PushValue(1)
	return 1
}

func battleMaxRounds(state *lua.State) int {
	s := checkBattle(state)
	s.MaxRounds = lua.CheckInteger(state, 2)
	state.PushValue(1)
	return 1
}

func battleLocalTeam(state *lua.State) int {
	s := checkBattle(state)
	s.LocalTeam = lua.CheckString(state, 2)
	state.PushValue(1)
	return 1
}

func battleWithdrawal(state *lua.State) int {
	s := checkBattle(state)
	s.Withdrawal = state.IsNoneOrNil(2) || state.ToBoolean(2)
	state.PushValue(1)
	return 1
}

func battleTeam(state *lua.State) int {
	s := checkBattle(state)
	id := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	team := Team{ID: id}
	if name, ok := opts["name"].(string); ok {
		team.Name = name
	}
	s.Teams = append(s.Teams, team)
	state.PushValue(1)
	return 1
}

func battleForce(state *lua.State) int {
	s := checkBattle(state)
	id := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	force := Force{ID: id}
	force.Team, _ = opts["team"].(string)
	force.Name, _ = opts["name"].(string)
	if force.Team == "" && len(s.Teams) > 0 {
		force.Team = s.Teams[len(s.Teams)-1].ID
	}
	s.Forces = append(s.Forces, force)
	state.PushUserData(&forceRef{scenario: s, index: len(s.Forces) - 1})
	lua.SetMetaTableNamed(state, forceTypeName)
	return 1
}

var forceMethods = []lua.RegistryFunction{
	{Name: "unit", Function: forceUnit},
	{Name: "units", Function: forceUnits},
}

func forceUnit(state *lua.State) int {
	ref := checkForce(state)
	id := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	unit, err := unitFromMap(id, opts)
	if err != nil {
		lua.Errorf(state, "unit %s: %s", id, err.Error())
		return 0
	}
	force := &ref.scenario.Forces[ref.index]
	force.Units = append(force.Units, unit)
	state.PushValue(1)
	return 1
}

// forceUnits adds count copies of a template named prefix-1..prefix-count,
// spaced along the y axis by opts.spacing (default 1).
func forceUnits(state *lua.State) int {
	ref := checkForce(state)
	prefix := lua.CheckString(state, 2)
	count := lua.CheckInteger(state, 3)
	if count > MaxUnits-ref.scenario.UnitCount() {
		lua.Errorf(state, "units %s: scenario exceeds %d units", prefix, MaxUnits)
		return 0
	}
	opts := optionalTable(state, 4)
	spacing := 1.0
	if v, ok := opts["spacing"]; ok {
		spacing = toFloat(v)
		delete(opts, "spacing")
	}
	force := &ref.scenario.Forces[ref.index]
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		unit, err := unitFromMap(id, opts)
		if err != nil {
			lua.Errorf(state, "unit %s: %s", id, err.Error())
			return 0
		}
		unit.Y += spacing * float64(i-1)
		force.Units = append(force.Units, unit)
	}
	state.PushValue(1)
	return 1
}

// unitFromMap decodes Lua options through the JSON field names so the DSL
// accepts exactly what scenario files accept.
func unitFromMap(id string, opts map[string]any) (Unit, error) {
	raw, err := json.Marshal(opts)
	if err != nil {
		return Unit{}, err
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	var unit Unit
	if err := dec.Decode(&unit); err != nil {
		return Unit{}, err
	}
	unit.ID = id
	return unit, nil
}

func checkBattle(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, battleTypeName)
	if s, ok := ud.(*Scenario); ok && s != nil {
		return s
	}
	lua.ArgumentError(state, 1, "battle expected")
	return nil
}

func checkForce(state *lua.State) *forceRef {
	ud := lua.CheckUserData(state, 1, forceTypeName)
	if ref, ok := ud.(*forceRef); ok && ref != nil && ref.scenario != nil {
		return ref
	}
	lua.ArgumentError(state, 1, "force expected")
	return nil
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo converts sequences to slices and everything else to maps. An
// empty table is an empty sequence.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
