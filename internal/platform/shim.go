package platform

// bindingName is the DevTools runtime binding the page shim reports through.
const bindingName = "__keyboardSensorSignal"

// shimJS installs the page-side listeners. Every event sends a complete
// snapshot so the Go side can answer queries from its cache.
const shimJS = `(function() {
  if (window.__keyboardSensorShim) { return; }
  window.__keyboardSensorShim = true;

  function orientation() {
    if (screen.orientation && screen.orientation.type) {
      return screen.orientation.type.indexOf("landscape") === 0 ? "landscape" : "portrait";
    }
    return window.matchMedia("(orientation: landscape)").matches ? "landscape" : "portrait";
  }

  function focused() {
    var el = document.activeElement;
    return !!el && el !== document.body && el !== document.documentElement;
  }

  function viewportFamily() {
    var ua = navigator.userAgent || "";
    return /iPad|iPhone|iPod/.test(ua) || (navigator.platform === "MacIntel" && navigator.maxTouchPoints > 1);
  }

  function snapshot(kind) {
    var vv = window.visualViewport;
    return {
      kind: kind,
      innerWidth: window.innerWidth,
      innerHeight: window.innerHeight,
      availHeight: screen.availHeight,
      orientation: orientation(),
      visibility: document.visibilityState === "hidden" ? "hidden" : "visible",
      focused: focused(),
      hasViewport: !!vv,
      viewportHeight: vv ? vv.height : 0,
      viewportFamily: viewportFamily()
    };
  }
  window.__keyboardSensorSnapshot = function() { return JSON.stringify(snapshot("snapshot")); };

  function send(kind) {
    var fn = window["` + bindingName + `"];
    if (typeof fn === "function") { fn(JSON.stringify(snapshot(kind))); }
  }

  document.addEventListener("focusin", function() { send("focusin"); }, true);
  document.addEventListener("focusout", function() { send("focusout"); }, true);
  document.addEventListener("visibilitychange", function() { send("visibility"); });
  window.addEventListener("resize", function() { send("resize"); });
  if (screen.orientation && screen.orientation.addEventListener) {
    screen.orientation.addEventListener("change", function() { send("orientation"); });
  } else {
    window.addEventListener("orientationchange", function() { send("orientation"); });
  }
  if (window.visualViewport) {
    window.visualViewport.addEventListener("resize", function() { send("viewport"); });
  }
})();`

// snapshotJS evaluates to the JSON snapshot of the current page.
const snapshotJS = `window.__keyboardSensorSnapshot()`
