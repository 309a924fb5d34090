package constant

// ScenarioTemplate scaffolds a new Lua scenario for `reelcore simulate --new`.
const ScenarioTemplate = `{{ $divider := repeat "-" (plus (len .Name) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @author  {{ .Author }}
{{ $divider }}

local feed = require("feed")

feed.register("a", "https://cdn.example/a.mp4")
feed.register("b", "https://cdn.example/b.mp4")
feed.resolve("a")
feed.resolve("b")

feed.visibility("a", 1.0)
assert(feed.playing("a"), "a should play once fully visible")

feed.visibility("b", 0.6)
feed.visibility("a", 0.4)
assert(feed.playing("b") and not feed.playing("a"), "only b should play")

feed.teardown("a")
feed.teardown("b")

-- ex: ts=4 sw=4 et filetype=lua
`
