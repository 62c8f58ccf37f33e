package loader

import "fmt"

// NativeResolver looks up natively implemented functions by (module atom id,
// function atom id, arity); implemented by avm/nif.Registry. Kept as an
// interface here so avm/loader never imports avm/nif (avm/nif depends on
// avm/process, which would otherwise cycle back through avm/loader).
type NativeResolver interface {
	LookupBIF(moduleAtom, functionAtom uint32, arity int) (fn interface{}, isGC bool, ok bool)
	LookupNIF(moduleAtom, functionAtom uint32, arity int) (fn interface{}, ok bool)
}

// ModuleResolver looks up a loaded module by its atom id; implemented by
// the VM's module registry (avm/vm.Global).
type ModuleResolver interface {
	ByAtom(moduleAtom uint32) (*Module, bool)
}

// ResolveAtLoad attempts BIF -> NIF resolution for every import as part of
// the load flow. Imports matching neither are left
// ImportUnresolved for ResolveOnCall to complete lazily.
func (m *Module) ResolveAtLoad(natives NativeResolver) {
	for i := range m.Imports {
		imp := &m.Imports[i]
		if fn, isGC, ok := natives.LookupBIF(imp.ModuleAtom, imp.FunctionAtom, imp.Arity); ok {
			imp.Kind = ImportBIF
			imp.BIF = fn
			imp.IsGCBif = isGC
			continue
		}
		if fn, ok := natives.LookupNIF(imp.ModuleAtom, imp.FunctionAtom, imp.Arity); ok {
			imp.Kind = ImportNIF
			imp.NIF = fn
		}
	}
}

// ErrUndef is returned by ResolveOnCall when the target module or exported
// function doesn't exist.
var ErrUndef = fmt.Errorf("undef")

// ResolveOnCall completes resolution of import i the first time it's
// called ("Resolve-on-call"): look up the target module by
// atom; if absent, undef; otherwise search its exports for a matching
// (name, arity), replacing the stub with a ModuleFunction{target, label}.
func (m *Module) ResolveOnCall(i int, modules ModuleResolver) error {
	imp := &m.Imports[i]
	if imp.Kind != ImportUnresolved {
		return nil
	}
	target, ok := modules.ByAtom(imp.ModuleAtom)
	if !ok {
		return ErrUndef
	}
	label, ok := target.Exports[ExportKey{FunctionAtom: imp.FunctionAtom, Arity: uint32(imp.Arity)}]
	if !ok {
		return ErrUndef
	}
	imp.Kind = ImportModuleFunc
	imp.TargetModule = imp.ModuleAtom
	imp.TargetLabel = label
	return nil
}
