// Package shim generates the CommonJS-style module runtime that gets
// pushed into a target Apps Script project as its first file. The Go
// process never executes this source; it only emits it as a constant
// string for the mirror and wrapper to push through GasApi.
package shim

import (
	"context"

	"github.com/gas-mcp/gas-mcp-server/internal/gasapi"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

// RuntimeName and BootstrapName are the GAS file names the runtime and
// exec bootstrap are pushed under. EnsureInstalled always reorders them
// to occupy these first two execution slots, in this order, ahead of
// every user module.
const (
	RuntimeName   = "__mcp_runtime__"
	BootstrapName = "__mcp_exec"
)

// Source returns the runtime's SERVER_JS source. It must occupy the first
// execution slot in a project's file order, ahead of the bootstrap module
// and all user modules — reorder enforces this at write time.
func Source() string {
	return runtimeSource
}

// BootstrapSource returns the `__mcp_exec` module used by the exec tool to
// run ad-hoc statements inside the shim's module graph without polluting
// user modules.
func BootstrapSource() string {
	return bootstrapSource
}

// EnsureInstalled makes scriptID's project carry the runtime and exec
// bootstrap as its first two files: it pushes whichever is missing, then
// reorders both ahead of every existing file regardless. Mutating tools
// call this before touching user content, so a project gains
// require/module.exports support no later than its first MCP write.
func EnsureInstalled(ctx context.Context, client gasapi.Client, scriptID string) error {
	files, err := client.ListContent(ctx, scriptID)
	if err != nil {
		return err
	}

	have := make(map[string]bool, len(files))
	for _, f := range files {
		have[f.Name] = true
	}

	if !have[RuntimeName] {
		if _, err := client.UpdateFile(ctx, scriptID, gasapi.File{
			Name:   RuntimeName,
			Type:   pathresolver.TypeServerJS,
			Source: Source(),
		}, -1); err != nil {
			return err
		}
	}
	if !have[BootstrapName] {
		if _, err := client.UpdateFile(ctx, scriptID, gasapi.File{
			Name:   BootstrapName,
			Type:   pathresolver.TypeServerJS,
			Source: BootstrapSource(),
		}, -1); err != nil {
			return err
		}
	}

	return client.Reorder(ctx, scriptID, []string{RuntimeName, BootstrapName})
}

const runtimeSource = `// gas-mcp runtime. Generated file: do not edit by hand.
var __mcp_registry__ = Object.create(null);
var __mcp_currentModule__ = null;

function __getCurrentModule__() {
  return __mcp_currentModule__;
}
globalThis.__getCurrentModule = __getCurrentModule__;

function __mcp_ModuleError__(message) {
  this.name = 'ModuleError';
  this.message = message;
}
__mcp_ModuleError__.prototype = Object.create(Error.prototype);

function require(name) {
  var record = __mcp_registry__[name];
  if (!record) {
    throw new __mcp_ModuleError__('no such module: ' + name);
  }
  if (record.state === 'loaded') {
    return record.exports;
  }
  if (record.state === 'loading') {
    // Cyclic require: caller sees whatever has been exported so far.
    return record.exports;
  }
  if (record.state === 'error') {
    throw record.error;
  }

  record.state = 'loading';
  var previous = __mcp_currentModule__;
  __mcp_currentModule__ = record;
  try {
    record.factory(record, record.exports, require);
    record.state = 'loaded';
    return record.exports;
  } catch (e) {
    record.state = 'error';
    record.error = e;
    throw e;
  } finally {
    __mcp_currentModule__ = previous;
  }
}
globalThis.require = require;

function __defineModule__(factoryFn, explicitName, options) {
  var name = explicitName || __mcp_inferModuleName__();
  options = options || {};
  __mcp_registry__[name] = {
    name: name,
    state: 'registered',
    exports: {},
    factory: factoryFn,
    dependencies: [],
    loadNow: options.loadNow === true,
    hasEvents: !!options.hasEvents,
  };
}
globalThis.__defineModule__ = __defineModule__;

function __mcp_inferModuleName__() {
  // Populated per-file at wrap time; this fallback only fires for
  // hand-authored modules that call __defineModule__ without a name.
  throw new __mcp_ModuleError__('module name could not be inferred; pass explicitName');
}

function __mcp_startup__() {
  var names = Object.keys(__mcp_registry__);
  for (var i = 0; i < names.length; i++) {
    var record = __mcp_registry__[names[i]];
    if (record.loadNow || record.hasEvents) {
      require(record.name);
    }
  }
  for (var j = 0; j < names.length; j++) {
    var loaded = __mcp_registry__[names[j]];
    if (loaded.state !== 'loaded') {
      continue;
    }
    var globalBindings = loaded.exports.__global__;
    if (globalBindings) {
      if (Array.isArray(globalBindings)) {
        for (var g = 0; g < globalBindings.length; g++) {
          globalThis[globalBindings[g]] = loaded.exports[globalBindings[g]];
        }
      } else {
        for (var key in globalBindings) {
          globalThis[key] = globalBindings[key];
        }
      }
    }
    var events = loaded.exports.__events__;
    if (events) {
      for (var eventName in events) {
        (function (fnName) {
          globalThis[eventName] = function () {
            return loaded.exports[fnName].apply(loaded.exports, arguments);
          };
        })(events[eventName]);
      }
    }
  }
}

// Invoked once, after every __defineModule__ call has registered (GAS loads
// files in the order reorder() placed them, so this runs after user code).
__mcp_startup__();
`

// ExecFunctionName is the top-level function name the exec tool's
// Execution API call targets. The module system only produces CommonJS
// exports, not top-level function declarations, so the bootstrap binds
// its run function to globalThis under this name via the runtime's
// __global__ convention.
const ExecFunctionName = "__mcp_exec_run__"

const bootstrapSource = `// gas-mcp exec bootstrap. Generated file: do not edit by hand.
__defineModule__(function (module, exports, require) {
  exports.__mcp_exec_run__ = function (statements) {
    return (0, eval)(statements);
  };
  exports.__global__ = ['__mcp_exec_run__'];
}, '__mcp_exec');
`
