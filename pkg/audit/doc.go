/*
Package audit inspects a stack for risky declarations before it is run.

Each Inspector looks at one concern and returns Alerts. An alert carries a
Severity and a Location, the path of the element it is about:

	ServiceLocation("api")                         → [service api]
	ServiceLocation("api").Environment("DB_PASS")  → [service api environment DB_PASS]
	ServiceLocation("api").Mount("api/mount-0")    → [service api mount api/mount-0]

The report renderer asks the Report for the alerts at each location it prints
with Report.Query.

Built-in inspectors:

  - secrets: plaintext values under secret-looking keys (critical)
  - service_image: missing, latest, unstable or vague tags
  - service_mounts: sensitive host paths, implicit read-write binds,
    overlapping targets, relative paths
  - service_healthcheck: services that declare no health check (info)
  - service_depends_on: dependencies without a health check to wait on (warn)

Auditing never blocks a run.
*/
package audit
