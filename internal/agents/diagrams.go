package agents

// ConceptDiagram is the curated knowledge-point diagram shown from the knowledge stage on.
const ConceptDiagram = `graph TD
    Root[Python双分支结构] --> Concept{核心概念}
    Concept --> |互斥| Choice[二选一]
    Concept --> |逻辑| Logic[条件判断]
    Root --> Syntax{语法规则}
    Syntax --> KW[if-else关键字]
    Syntax --> Colon[冒号 :]
    Syntax --> Indent[缩进]`

// FullCourseDiagram extends ConceptDiagram with the application scenarios of the course.
const FullCourseDiagram = ConceptDiagram + `
    Root --> App{应用场景}
    App --> Ticket[公园购票]
    App --> Weather[气象站报警]`
